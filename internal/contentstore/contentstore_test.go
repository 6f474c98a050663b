package contentstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "multiaddr https", raw: "/dns4/ipfs.infura.io/tcp/5001/https", want: "https://ipfs.infura.io:5001"},
		{name: "multiaddr plain ip4", raw: "/ip4/127.0.0.1/tcp/5001", want: "http://127.0.0.1:5001"},
		{name: "multiaddr ip6", raw: "/ip6/::1/tcp/5001/http", want: "http://[::1]:5001"},
		{name: "url", raw: "https://ipfs.example.org:5001/", want: "https://ipfs.example.org:5001"},
		{name: "empty", raw: " ", wantErr: true},
		{name: "no port", raw: "/dns4/ipfs.infura.io", wantErr: true},
		{name: "bad scheme", raw: "ftp://ipfs.example.org", wantErr: true},
		{name: "bad multiaddr", raw: "/nope/x", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseEndpoint(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidEndpoint) {
					t.Fatalf("expected ErrInvalidEndpoint, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse endpoint: %v", err)
			}
			if got.String() != tc.want {
				t.Fatalf("unexpected url: got %q want %q", got.String(), tc.want)
			}
		})
	}
}

func TestClientAddRequestShape(t *testing.T) {
	var (
		gotPath    string
		gotPin     string
		gotUser    string
		gotPass    string
		gotName    string
		gotContent []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPin = r.URL.Query().Get("pin")
		gotUser, gotPass, _ = r.BasicAuth()
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()
		gotName = header.Filename
		gotContent, _ = io.ReadAll(file)
		id, _ := CIDv1Raw(gotContent)
		_, _ = fmt.Fprintf(w, `{"Name":%q,"Hash":%q,"Size":"%d"}`, header.Filename, id.String(), len(gotContent))
	}))
	defer srv.Close()

	var uploaded int64
	client, err := NewClient(Options{
		Endpoint:      srv.URL,
		ProjectID:     "project",
		ProjectSecret: "secret",
		Pin:           true,
		HTTPClient:    srv.Client(),
		OnUploaded:    func(n int64) { uploaded += n },
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	content := []byte(`{"content":"hello"}`)
	res, err := client.Add(context.Background(), "metadata.json", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if gotPath != "/api/v0/add" || gotPin != "true" {
		t.Fatalf("unexpected request path=%q pin=%q", gotPath, gotPin)
	}
	if gotUser != "project" || gotPass != "secret" {
		t.Fatalf("unexpected basic auth %q:%q", gotUser, gotPass)
	}
	if gotName != "metadata.json" || !bytes.Equal(gotContent, content) {
		t.Fatalf("unexpected upload name=%q content=%q", gotName, gotContent)
	}
	want, _ := CIDv1Raw(content)
	if res.CID != want || res.Path != want.String() {
		t.Fatalf("unexpected result: %#v", res)
	}
	if res.URI() != "ipfs://"+want.String() {
		t.Fatalf("unexpected uri %q", res.URI())
	}
	if res.Size != int64(len(content)) || uploaded != int64(len(content)) {
		t.Fatalf("unexpected size=%d uploaded=%d", res.Size, uploaded)
	}
}

func TestClientAddWithoutCredentialsSkipsAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); ok {
			t.Errorf("unexpected basic auth header")
		}
		_, _ = w.Write([]byte(`{"Name":"f","Hash":"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG","Size":"x"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Options{Endpoint: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	res, err := client.Add(context.Background(), "", strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res.Path != "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG" || res.Size != 3 {
		t.Fatalf("unexpected result: %#v", res)
	}
}

func TestClientAddErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: "invalid project id", wantErr: ErrUploadFailed},
		{name: "bad json", status: http.StatusOK, body: "not json", wantErr: ErrUploadFailed},
		{name: "bad hash", status: http.StatusOK, body: `{"Hash":"not-a-cid"}`, wantErr: ErrInvalidCID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			called := false
			client, err := NewClient(Options{Endpoint: srv.URL, HTTPClient: srv.Client(), OnUploaded: func(int64) { called = true }})
			if err != nil {
				t.Fatalf("new client: %v", err)
			}
			if _, err := client.Add(context.Background(), "f", strings.NewReader("abc")); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if called {
				t.Fatal("upload hook must not fire on failure")
			}
		})
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	data := []byte("hello, lens")

	first, err := store.Add(context.Background(), "a", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := store.Add(context.Background(), "b", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if first.CID != second.CID {
		t.Fatalf("add not idempotent: %s vs %s", first.CID, second.CID)
	}
	want, _ := CIDv1Raw(data)
	if first.CID != want {
		t.Fatalf("cid mismatch: got %s want %s", first.CID, want)
	}

	got, err := store.Get(first.CID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("get bytes mismatch")
	}
	got[0] = 'X'
	again, _ := store.Get(first.CID)
	if !bytes.Equal(again, data) {
		t.Fatal("stored bytes must be immutable")
	}

	missing, _ := CIDv1Raw([]byte("missing"))
	if store.Has(missing) {
		t.Fatal("has returned true for missing cid")
	}
	if _, err := store.Get(missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if names := store.Uploads(); len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("unexpected uploads: %v", names)
	}
}

func TestMemoryStoreHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemoryStore().Add(ctx, "a", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClientAddStreamsBody(t *testing.T) {
	content := bytes.Repeat([]byte("lens"), 256<<10)
	var (
		gotLength  int64
		gotContent []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLength = r.ContentLength
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()
		gotContent, _ = io.ReadAll(file)
		id, _ := CIDv1Raw(gotContent)
		_, _ = fmt.Fprintf(w, `{"Name":"video.mp4","Hash":%q,"Size":"%d"}`, id.String(), len(gotContent))
	}))
	defer srv.Close()

	var uploaded int64
	client, err := NewClient(Options{Endpoint: srv.URL, HTTPClient: srv.Client(), OnUploaded: func(n int64) { uploaded = n }})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	res, err := client.Add(context.Background(), "video.mp4", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if gotLength != -1 {
		t.Fatalf("expected a chunked body of unknown length, got content length %d", gotLength)
	}
	if !bytes.Equal(gotContent, content) {
		t.Fatalf("server received %d bytes, want %d", len(gotContent), len(content))
	}
	if uploaded != int64(len(content)) || res.Size != int64(len(content)) {
		t.Fatalf("unexpected uploaded=%d size=%d", uploaded, res.Size)
	}
}

func TestClientAddUploadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	called := false
	client, err := NewClient(Options{
		Endpoint:      srv.URL,
		HTTPClient:    srv.Client(),
		UploadTimeout: 50 * time.Millisecond,
		OnUploaded:    func(int64) { called = true },
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	started := time.Now()
	_, err = client.Add(context.Background(), "f", strings.NewReader("abc"))
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		t.Fatalf("upload timeout not applied, took %s", elapsed)
	}
	if called {
		t.Fatal("upload hook must not fire on failure")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errInjectedRead
}

var errInjectedRead = errors.New("disk went away")

func TestClientAddSourceReadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write([]byte(`{"Hash":"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Options{Endpoint: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Add(context.Background(), "f", failingReader{}); !errors.Is(err, errInjectedRead) {
		t.Fatalf("expected source read error, got %v", err)
	}
}
