package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yelpcamp/apiserver/internal/store/memory"
	"github.com/yelpcamp/apiserver/types"
)

const testAdminCode = "letmein"

type fakeImages struct {
	mu        sync.Mutex
	next      int
	stored    map[string]bool
	destroyed []string
	uploadErr error
}

func newFakeImages() *fakeImages {
	return &fakeImages{stored: make(map[string]bool)}
}

func (f *fakeImages) Upload(_ context.Context, filename string, _ []byte) (types.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return types.Image{}, f.uploadErr
	}
	f.next++
	id := fmt.Sprintf("img-%d", f.next)
	f.stored[id] = true
	return types.Image{URL: "https://images.test/" + id + "/" + filename, ID: id}, nil
}

func (f *fakeImages) Destroy(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, id)
	f.destroyed = append(f.destroyed, id)
	return nil
}

func (f *fakeImages) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

type fakeGeocoder struct {
	results []types.GeoResult
	err     error
	calls   int
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) ([]types.GeoResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.results != nil {
		return f.results, nil
	}
	return []types.GeoResult{{Latitude: 45.5, Longitude: -122.6, FormattedAddress: address + ", USA"}}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

func (f *fakeNotifier) messages() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Notification, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeRecorder struct {
	mu    sync.Mutex
	authz map[string]int
	reset map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{authz: make(map[string]int), reset: make(map[string]int)}
}

func (r *fakeRecorder) RecordAuthzDecision(kind, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authz[kind+"/"+outcome]++
}

func (r *fakeRecorder) RecordReset(stage, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset[stage+"/"+outcome]++
}

type fixture struct {
	store       *memory.Store
	images      *fakeImages
	geocoder    *fakeGeocoder
	notifier    *fakeNotifier
	clock       *fakeClock
	recorder    *fakeRecorder
	users       *UserService
	campgrounds *CampgroundService
	comments    *CommentService
	reset       *ResetService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.NewStore(),
		images:   newFakeImages(),
		geocoder: &fakeGeocoder{},
		notifier: &fakeNotifier{},
		clock:    newFakeClock(),
		recorder: newFakeRecorder(),
	}
	f.users = NewUserService(f.store.Users(), f.store.Campgrounds(), f.images, testAdminCode, f.recorder)
	f.campgrounds = NewCampgroundService(f.store.Campgrounds(), f.store.Comments(), f.images, f.geocoder, nil, f.recorder)
	f.comments = NewCommentService(f.store.Comments(), nil, f.recorder)
	f.reset = NewResetService(f.store.Users(), f.notifier, "https://camp.test", time.Hour,
		WithClock(f.clock.Now),
		WithResetRecorder(f.recorder),
	)
	return f
}

func (f *fixture) register(t *testing.T, username string, admin bool) types.User {
	t.Helper()

	input := RegisterInput{
		Username:  username,
		Password:  username + "-password",
		Email:     username + "@example.com",
		FirstName: username,
		LastName:  "Tester",
	}
	if admin {
		input.AdminCode = testAdminCode
	}
	user, err := f.users.Register(context.Background(), input)
	require.NoError(t, err)
	return user
}

func (f *fixture) createCampground(t *testing.T, actor types.User, name string) types.Campground {
	t.Helper()

	c, err := f.campgrounds.Create(context.Background(), &actor, CampgroundInput{
		Name:        name,
		Price:       "12.50",
		Description: "A quiet spot",
		Location:    "Portland",
		Image:       &Upload{Filename: "camp.jpg", Data: []byte("jpeg")},
	})
	require.NoError(t, err)
	return c
}

var resetLinkPattern = regexp.MustCompile(`/reset/([0-9a-f]{40})`)

func tokenFromNotification(t *testing.T, n Notification) string {
	t.Helper()

	m := resetLinkPattern.FindStringSubmatch(n.Body)
	require.Len(t, m, 2, "no reset link in %q", n.Body)
	return m[1]
}

var errBoom = errors.New("boom")
