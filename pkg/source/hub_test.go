// pkg/source/hub_test.go
package source

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epidatalab/covid-eda/pkg/config"
)

func newHubSource(t *testing.T, baseURL string) *HubSource {
	t.Helper()
	src, err := NewHubSource(&config.HubConfig{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return src
}

func TestNewHubSource_NilConfig(t *testing.T) {
	_, err := NewHubSource(nil)
	assert.EqualError(t, err, "hub configuration cannot be nil")
}

func TestHubSource_Name(t *testing.T) {
	src := newHubSource(t, "https://storage.covid19datahub.io")
	assert.Equal(t, "hub", src.Name())
}

func TestFetch_ParsesExport(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("region_level2,date,confirmed\nKing County,2021-03-01,120\nPierce County,2021-03-01,80\n"))
	}))
	defer srv.Close()

	src := newHubSource(t, srv.URL)
	records, err := src.Fetch(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, "/level/2.csv", gotPath)
	assert.Equal(t, http.MethodGet, gotMethod)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"region_level2", "date", "confirmed"}, records[0])
	assert.Equal(t, []string{"King County", "2021-03-01", "120"}, records[1])
}

func TestFetch_GzipPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte("region_level2,date\nKing County,2021-03-01\n"))
		_ = gz.Close()
	}))
	defer srv.Close()

	src := newHubSource(t, srv.URL)
	records, err := src.Fetch(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, []string{"King County", "2021-03-01"}, records[1])
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := newHubSource(t, srv.URL)
	_, err := src.Fetch(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hub returned status 404")
	assert.Contains(t, err.Error(), "/level/3.csv")
}

func TestFetch_EmptyExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
	}))
	defer srv.Close()

	src := newHubSource(t, srv.URL)
	_, err := src.Fetch(context.Background(), 2)
	assert.EqualError(t, err, "hub export is empty")
}

func TestFetch_MalformedCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("region_level2,date\n\"unterminated,2021-03-01\n"))
	}))
	defer srv.Close()

	src := newHubSource(t, srv.URL)
	_, err := src.Fetch(context.Background(), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse hub CSV")
}

func TestValidate_Statuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr string
	}{
		{name: "ok", status: http.StatusOK},
		{name: "client errors pass", status: http.StatusNotFound},
		{name: "server error fails", status: http.StatusServiceUnavailable, wantErr: "hub probe returned status 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotMethod string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			src := newHubSource(t, srv.URL)
			err := src.Validate(context.Background())

			assert.Equal(t, http.MethodHead, gotMethod)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	src := newHubSource(t, srv.URL)
	err := src.Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hub is unreachable")
}
