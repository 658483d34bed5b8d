package render

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ternarybob/fabrica/internal/common"
)

func TestRenderVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/render" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req renderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.AudioURL != "https://cdn.example.com/audio/abc.mp3" {
			t.Errorf("unexpected audio URL: %s", req.AudioURL)
		}
		if req.Title != "Intro to Go" {
			t.Errorf("unexpected title: %s", req.Title)
		}
		if req.Resolution != "1080p" {
			t.Errorf("unexpected resolution: %s", req.Resolution)
		}

		json.NewEncoder(w).Encode(renderResponse{
			VideoURL:     "https://cdn.example.com/video/abc.mp4",
			ThumbnailURL: "https://cdn.example.com/thumb/abc.jpg",
		})
	}))
	defer server.Close()

	client, err := NewClient(&common.RenderConfig{
		BaseURL:    server.URL,
		Resolution: "1080p",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	result, err := client.RenderVideo(context.Background(), "https://cdn.example.com/audio/abc.mp3", "Intro to Go")
	if err != nil {
		t.Fatalf("RenderVideo failed: %v", err)
	}
	if result.VideoURL != "https://cdn.example.com/video/abc.mp4" {
		t.Errorf("unexpected video URL: %s", result.VideoURL)
	}
	if result.ThumbnailURL != "https://cdn.example.com/thumb/abc.jpg" {
		t.Errorf("unexpected thumbnail URL: %s", result.ThumbnailURL)
	}
}

func TestRenderVideo_MissingVideoURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(renderResponse{})
	}))
	defer server.Close()

	client, err := NewClient(&common.RenderConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.RenderVideo(context.Background(), "https://cdn.example.com/audio/abc.mp3", "Title"); err == nil {
		t.Error("expected error when provider returns no video URL")
	}
}

func TestRenderVideo_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "render farm overloaded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(&common.RenderConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.RenderVideo(context.Background(), "https://cdn.example.com/audio/abc.mp3", "Title")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("unexpected status code: %d", apiErr.StatusCode)
	}
}

func TestRenderVideo_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(renderResponse{VideoURL: "https://cdn.example.com/video/abc.mp4"})
	}))
	defer server.Close()

	client, err := NewClient(&common.RenderConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.RenderVideo(ctx, "https://cdn.example.com/audio/abc.mp3", "Title")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled to surface, got %v", err)
	}
}
