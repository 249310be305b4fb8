package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yelpcamp/apiserver/internal/services"
	"github.com/yelpcamp/apiserver/types"
)

func updateBody(t *testing.T, name string) (io.Reader, string) {
	t.Helper()
	return multipartBody(t, map[string]string{
		"name":     name,
		"price":    "15",
		"location": "Bend",
	})
}

func TestCampgroundOwnership(t *testing.T) {
	a := newAPI(t, nil)
	aliceToken, alice := a.register(t, "alice", false)
	bobToken, _ := a.register(t, "bob", false)
	adminToken, _ := a.register(t, "root", true)

	c := a.createCampground(t, aliceToken, "Lakeside")
	assert.Equal(t, alice.ID, c.Author.ID)
	assert.Equal(t, "alice", c.Author.Username)
	path := fmt.Sprintf("/campgrounds/%d", c.ID)

	body, ct := updateBody(t, "Bob's now")
	rec := a.do(t, http.MethodPut, path, bobToken, body, ct)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	denied := rec.Body.String()
	assert.Equal(t, msgNoPermission, decodeError(t, rec))

	body, ct = updateBody(t, "Bob's now")
	rec = a.do(t, http.MethodPut, "/campgrounds/9999", bobToken, body, ct)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, denied, rec.Body.String())

	body, ct = updateBody(t, "Anonymous")
	rec = a.do(t, http.MethodPut, path, "", body, ct)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body, ct = updateBody(t, "Lakeside North")
	rec = a.do(t, http.MethodPut, path, aliceToken, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body, ct = updateBody(t, "Lakeside Admin")
	rec = a.do(t, http.MethodPut, path, adminToken, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated types.Campground
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Lakeside Admin", updated.Name)
	assert.Equal(t, alice.ID, updated.Author.ID, "author is kept on admin edits")

	rec = a.do(t, http.MethodDelete, path, bobToken, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodDelete, path, adminToken, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, path, "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCampgroundValidation(t *testing.T) {
	a := newAPI(t, nil)
	token, _ := a.register(t, "alice", false)

	body, ct := multipartBody(t, map[string]string{"name": "x", "location": "y"})
	rec := a.do(t, http.MethodPost, "/campgrounds", "", body, ct)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body, ct = multipartBody(t, map[string]string{"name": "x", "location": "y"},
		formFile{field: "image", filename: "notes.txt", data: []byte("hi")})
	rec = a.do(t, http.MethodPost, "/campgrounds", token, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "only image files are allowed", decodeError(t, rec))

	body, ct = multipartBody(t, map[string]string{"name": "x", "location": "y"})
	rec = a.do(t, http.MethodPost, "/campgrounds", token, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "image is required", decodeError(t, rec))

	rec = a.do(t, http.MethodGet, "/campgrounds/abc", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid campground id", decodeError(t, rec))
}

func TestListCampgroundsPagesAndFilters(t *testing.T) {
	a := newAPI(t, nil)
	_, alice := a.register(t, "alice", false)

	for i := 1; i <= services.PageSize+1; i++ {
		_, err := a.campgrounds.Create(context.Background(), &alice, services.CampgroundInput{
			Name:     fmt.Sprintf("Site %d", i),
			Location: "Portland",
			Image:    &services.Upload{Filename: "c.jpg", Data: []byte("x")},
		})
		require.NoError(t, err)
	}

	rec := a.do(t, http.MethodGet, "/campgrounds?page=2", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page services.CampgroundPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.Pages)
	assert.Equal(t, services.PageSize+1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, fmt.Sprintf("Site %d", services.PageSize+1), page.Items[0].Name)

	rec = a.do(t, http.MethodGet, "/campgrounds?page=bogus", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, services.PageSize)

	rec = a.do(t, http.MethodGet, "/campgrounds?search=.*", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page = services.CampgroundPage{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Empty(t, page.Items)
	assert.NotEmpty(t, page.Message)
}

func TestMutationsRejectedBeforeBodyIsRead(t *testing.T) {
	a := newAPI(t, nil)
	aliceToken, _ := a.register(t, "alice", false)
	bobToken, _ := a.register(t, "bob", false)
	c := a.createCampground(t, aliceToken, "Lakeside")
	path := fmt.Sprintf("/campgrounds/%d", c.ID)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous create", http.MethodPost, "/campgrounds", "", http.StatusUnauthorized},
		{"anonymous update", http.MethodPut, path, "", http.StatusUnauthorized},
		{"foreign update", http.MethodPut, path, bobToken, http.StatusForbidden},
		{"update of missing campground", http.MethodPut, "/campgrounds/9999", bobToken, http.StatusForbidden},
		{"anonymous comment", http.MethodPost, path + "/comments", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form, ct := updateBody(t, "Bob's now")
			body := &countingReader{r: form}

			rec := a.do(t, tc.method, tc.path, tc.token, body, ct)
			assert.Equal(t, tc.want, rec.Code)
			assert.Zero(t, body.reads)
		})
	}
}
