package drive_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lyfeumbria/manager/drive"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type recorded struct {
	method string
	path   string
	query  map[string]string
	auth   string
}

func newServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		calls = append(calls, recorded{method: r.Method, path: r.URL.Path, query: q, auth: r.Header.Get("Authorization")})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newClient(srv *httptest.Server) *drive.Client {
	return drive.NewClient(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "ya29.token"}), drive.Options{
		APIURL:    srv.URL + "/drive/v3",
		UploadURL: srv.URL + "/upload/drive/v3",
		FolderID:  "folder-main",
	})
}

func TestListFiles(t *testing.T) {
	srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"files":[{"id":"f1","name":"fattura.pdf","mimeType":"application/pdf"}],"nextPageToken":"next"}`)
	})
	c := newClient(srv)

	list, err := c.ListFiles(context.Background(), "", 25, "page-2")
	require.NoError(t, err)
	require.Len(t, list.Files, 1)
	require.Equal(t, "fattura.pdf", list.Files[0].Name)
	require.Equal(t, "next", list.NextPageToken)

	call := (*calls)[0]
	require.Equal(t, http.MethodGet, call.method)
	require.Equal(t, "/drive/v3/files", call.path)
	require.Equal(t, "Bearer ya29.token", call.auth)
	require.Equal(t, "'folder-main' in parents and trashed=false", call.query["q"])
	require.Equal(t, "25", call.query["pageSize"])
	require.Equal(t, "page-2", call.query["pageToken"])
	require.Equal(t, "modifiedTime desc", call.query["orderBy"])
}

func TestListFiles_EmptyFolder(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	list, err := newClient(srv).ListFiles(context.Background(), "other", 0, "")
	require.NoError(t, err)
	require.NotNil(t, list.Files)
	require.Empty(t, list.Files)
}

func TestSearchFiles(t *testing.T) {
	srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"files":[{"id":"f2","name":"contratto gas"}]}`)
	})
	c := newClient(srv)

	files, err := c.SearchFiles(context.Background(), "l'acqua", "folder-x")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, `'folder-x' in parents and name contains 'l\'acqua' and trashed=false`, (*calls)[0].query["q"])

	_, err = c.SearchFiles(context.Background(), "gas", "")
	require.NoError(t, err)
	require.Equal(t, "name contains 'gas' and trashed=false", (*calls)[1].query["q"])
}

func TestUpload(t *testing.T) {
	var (
		metadata map[string]any
		content  string
		partType string
	)
	srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/related", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		meta, err := mr.NextPart()
		require.NoError(t, err)
		require.NoError(t, json.NewDecoder(meta).Decode(&metadata))

		media, err := mr.NextPart()
		require.NoError(t, err)
		partType = media.Header.Get("Content-Type")
		raw, err := io.ReadAll(media)
		require.NoError(t, err)
		content = string(raw)

		fmt.Fprint(w, `{"id":"new-id","name":"ricevuta.txt","mimeType":"text/plain"}`)
	})

	f, err := newClient(srv).Upload(context.Background(), "", "ricevuta.txt", "text/plain", strings.NewReader("pagato"))
	require.NoError(t, err)
	require.Equal(t, "new-id", f.ID)

	call := (*calls)[0]
	require.Equal(t, http.MethodPost, call.method)
	require.Equal(t, "/upload/drive/v3/files", call.path)
	require.Equal(t, "multipart", call.query["uploadType"])
	require.Equal(t, "ricevuta.txt", metadata["name"])
	require.Equal(t, []any{"folder-main"}, metadata["parents"])
	require.Equal(t, "text/plain", partType)
	require.Equal(t, "pagato", content)
}

func TestCreateFolder(t *testing.T) {
	var body map[string]any
	srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{"id":"dir","name":"Fatture 2024","mimeType":"application/vnd.google-apps.folder"}`)
	})

	f, err := newClient(srv).CreateFolder(context.Background(), "Fatture 2024", "parent-1")
	require.NoError(t, err)
	require.True(t, f.IsFolder())
	require.Equal(t, drive.FolderMimeType, body["mimeType"])
	require.Equal(t, []any{"parent-1"}, body["parents"])
	require.Equal(t, http.MethodPost, (*calls)[0].method)
	require.Equal(t, "/drive/v3/files", (*calls)[0].path)
}

func TestDeleteAndGetFile(t *testing.T) {
	srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		fmt.Fprint(w, `{"id":"f1","name":"a.pdf","parents":["folder-main"]}`)
	})
	c := newClient(srv)

	require.NoError(t, c.Delete(context.Background(), "f1"))
	require.Equal(t, http.MethodDelete, (*calls)[0].method)
	require.Equal(t, "/drive/v3/files/f1", (*calls)[0].path)

	f, err := c.GetFile(context.Background(), "f1")
	require.NoError(t, err)
	require.Equal(t, []string{"folder-main"}, f.Parents)
}

func TestAPIErrorIsSurfacedUninterpreted(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"insufficientPermissions"}}`)
	})

	err := newClient(srv).Delete(context.Background(), "f1")
	var apiErr *drive.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	require.Equal(t, "403 Forbidden", apiErr.Status)
	require.Contains(t, apiErr.Body, "insufficientPermissions")
}

func TestTokenSourceErrorStopsRequest(t *testing.T) {
	srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	c := drive.NewClient(failingSource{}, drive.Options{APIURL: srv.URL})

	_, err := c.ListFiles(context.Background(), "", 10, "")
	require.Error(t, err)
	require.Empty(t, *calls)
}

type failingSource struct{}

func (failingSource) Token() (*oauth2.Token, error) {
	return nil, fmt.Errorf("not authenticated")
}
