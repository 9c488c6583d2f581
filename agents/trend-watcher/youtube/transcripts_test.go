package youtube

import (
	"context"
	"errors"
	"testing"
)

// fakeTrackSource serves canned tracks and texts, recording fetch order.
type fakeTrackSource struct {
	tracks  []Track
	listErr error
	texts   map[string]string
	errs    map[string]error
	fetched []string
}

func trackKey(track Track) string {
	kind := "manual"
	if track.Auto {
		kind = "auto"
	}
	return track.Language + "/" + kind
}

func (f *fakeTrackSource) ListTracks(ctx context.Context, videoID string) ([]Track, error) {
	return f.tracks, f.listErr
}

func (f *fakeTrackSource) FetchTranscript(ctx context.Context, videoID string, track Track) (string, error) {
	key := trackKey(track)
	f.fetched = append(f.fetched, key)
	if err, ok := f.errs[key]; ok {
		return "", err
	}
	return f.texts[key], nil
}

func TestResolveNoTracks(t *testing.T) {
	resolver := NewResolver(&fakeTrackSource{}, "ko")

	transcript, err := resolver.Resolve(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if transcript != nil {
		t.Errorf("Expected nil transcript for a video without captions, got %+v", transcript)
	}
}

func TestResolveListError(t *testing.T) {
	resolver := NewResolver(&fakeTrackSource{listErr: errors.New("timeout")}, "ko")

	if _, err := resolver.Resolve(context.Background(), "vid1"); err == nil {
		t.Error("Expected listing errors to propagate")
	}
}

func TestResolvePrefersAutoInPreferredLanguage(t *testing.T) {
	source := &fakeTrackSource{
		tracks: []Track{
			{Language: "en", Auto: false},
			{Language: "ko", Auto: true},
			{Language: "en", Auto: true},
		},
		texts: map[string]string{
			"ko/auto":   "한국어 자막",
			"en/auto":   "english auto",
			"en/manual": "english manual",
		},
	}
	resolver := NewResolver(source, "ko")

	transcript, err := resolver.Resolve(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if transcript == nil {
		t.Fatal("Expected a transcript")
	}
	if transcript.Language != "ko" || !transcript.AutoGenerated {
		t.Errorf("Expected auto ko track, got %s (auto=%v)", transcript.Language, transcript.AutoGenerated)
	}
	if transcript.Text != "한국어 자막" {
		t.Errorf("Unexpected text %q", transcript.Text)
	}
	if transcript.Length != len("한국어 자막") {
		t.Errorf("Length %d does not match text", transcript.Length)
	}
}

func TestResolveFallsBackThroughLanguagePriorities(t *testing.T) {
	source := &fakeTrackSource{
		tracks: []Track{
			{Language: "ja", Auto: true},
			{Language: "en", Auto: true},
		},
		texts: map[string]string{
			"ja/auto": "日本語",
			"en/auto": "english",
		},
	}
	resolver := NewResolver(source, "ko")

	transcript, err := resolver.Resolve(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if transcript == nil || transcript.Language != "en" {
		t.Fatalf("Expected English before Japanese, got %+v", transcript)
	}
}

func TestResolveAutoPassBeforeManualPass(t *testing.T) {
	// A manual track in the top-priority language still loses to an
	// auto-generated track in a lower-priority language.
	source := &fakeTrackSource{
		tracks: []Track{
			{Language: "ko", Auto: false},
			{Language: "ja", Auto: true},
		},
		texts: map[string]string{
			"ko/manual": "한국어",
			"ja/auto":   "日本語",
		},
	}
	resolver := NewResolver(source, "ko")

	transcript, err := resolver.Resolve(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if transcript == nil || transcript.Language != "ja" || !transcript.AutoGenerated {
		t.Fatalf("Expected auto ja track, got %+v", transcript)
	}
}

func TestResolveManualOnly(t *testing.T) {
	source := &fakeTrackSource{
		tracks: []Track{
			{Language: "en", Auto: false},
		},
		texts: map[string]string{
			"en/manual": "english manual",
		},
	}
	resolver := NewResolver(source, "ko")

	transcript, err := resolver.Resolve(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if transcript == nil || transcript.AutoGenerated {
		t.Fatalf("Expected manual track, got %+v", transcript)
	}
}

func TestResolveUnlistedLanguageAutoThenManualRetry(t *testing.T) {
	// Neither track matches any priority language; the auto track is tried
	// first and its fetch failure falls through to the manual one.
	source := &fakeTrackSource{
		tracks: []Track{
			{Language: "de", Auto: false},
			{Language: "fr", Auto: true},
		},
		texts: map[string]string{
			"de/manual": "deutsch",
		},
		errs: map[string]error{
			"fr/auto": errors.New("track gone"),
		},
	}
	resolver := NewResolver(source, "ko")

	transcript, err := resolver.Resolve(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if transcript == nil || transcript.Language != "de" {
		t.Fatalf("Expected manual de fallback, got %+v", transcript)
	}
	if len(source.fetched) != 2 || source.fetched[0] != "fr/auto" || source.fetched[1] != "de/manual" {
		t.Errorf("Unexpected fetch order %v", source.fetched)
	}
}

func TestResolveAllFetchesFail(t *testing.T) {
	source := &fakeTrackSource{
		tracks: []Track{
			{Language: "en", Auto: true},
		},
		errs: map[string]error{
			"en/auto": errors.New("track gone"),
		},
	}
	resolver := NewResolver(source, "ko")

	transcript, err := resolver.Resolve(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Resolve should not error when fetches fail: %v", err)
	}
	if transcript != nil {
		t.Errorf("Expected nil transcript, got %+v", transcript)
	}
}

func TestResolveMatchesLanguageVariants(t *testing.T) {
	source := &fakeTrackSource{
		tracks: []Track{
			{Language: "en-US", Auto: true},
		},
		texts: map[string]string{
			"en-US/auto": "american english",
		},
	}
	resolver := NewResolver(source, "ko")

	transcript, err := resolver.Resolve(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if transcript == nil || transcript.Language != "en-US" {
		t.Fatalf("Expected en-US variant to match the en group, got %+v", transcript)
	}
}
