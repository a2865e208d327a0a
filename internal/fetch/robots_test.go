package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRobotsCacheDisallow(t *testing.T) {
	var robotsFetches int
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		robotsFetches++
		fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	})

	rc := NewRobotsCache("urlharvest-test", time.Second)
	ctx := context.Background()

	assert.True(t, rc.Allowed(ctx, srv.URL+"/public/page"))
	assert.False(t, rc.Allowed(ctx, srv.URL+"/private/page"))
	assert.Equal(t, 1, robotsFetches, "robots.txt fetched once per host")
}

func TestRobotsCacheMissingRobotsAllowsAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	rc := NewRobotsCache("urlharvest-test", time.Second)
	assert.True(t, rc.Allowed(context.Background(), srv.URL+"/anything"))
}
