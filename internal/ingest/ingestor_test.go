package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	md5hash "github.com/JakeFAU/laborsync/internal/hash/md5"
	"github.com/JakeFAU/laborsync/internal/storage/memory"
)

type fakeFetcher struct {
	body []byte
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

type recordingPublisher struct {
	topics   []string
	payloads []any
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return "msg-1", nil
}

func newIngestor(fetcher *fakeFetcher, store *memory.BlobStore, pub *recordingPublisher) *Ingestor {
	cfg := Config{
		APIURL:    "https://api.example.com/population",
		TargetKey: "bls-data/population_data.json",
	}
	if pub != nil {
		cfg.Topic = "object-written"
		return New(fetcher, store, md5hash.New(), pub, cfg, zap.NewNop())
	}
	return New(fetcher, store, md5hash.New(), nil, cfg, zap.NewNop())
}

func TestRunUpdatedThenSkipped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewBlobStore()
	fetcher := &fakeFetcher{body: []byte(`{"data":[{"Year":"2013","Population":300}]}`)}
	ing := newIngestor(fetcher, store, nil)

	first := ing.Run(ctx)
	require.Equal(t, StatusUpdated, first.Status)
	require.NotEmpty(t, first.Fingerprint)

	second := ing.Run(ctx)
	require.Equal(t, StatusSkipped, second.Status)
	require.Equal(t, first.Fingerprint, second.Fingerprint)
	require.Equal(t, 1, store.Len())
}

func TestRunKeyOrderDoesNotChangeFingerprint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewBlobStore()
	fetcher := &fakeFetcher{body: []byte(`{"data":[{"Year":"2013","Population":300}],"source":"acs"}`)}
	ing := newIngestor(fetcher, store, nil)

	first := ing.Run(ctx)
	require.Equal(t, StatusUpdated, first.Status)

	// Same content, different field ordering.
	fetcher.body = []byte(`{"source":"acs","data":[{"Population":300,"Year":"2013"}]}`)
	second := ing.Run(ctx)
	require.Equal(t, StatusSkipped, second.Status)
	require.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestRunValueChangeChangesFingerprint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewBlobStore()
	fetcher := &fakeFetcher{body: []byte(`{"data":[{"Year":"2013","Population":300}]}`)}
	ing := newIngestor(fetcher, store, nil)

	first := ing.Run(ctx)
	require.Equal(t, StatusUpdated, first.Status)

	fetcher.body = []byte(`{"data":[{"Year":"2013","Population":301}]}`)
	second := ing.Run(ctx)
	require.Equal(t, StatusUpdated, second.Status)
	require.NotEqual(t, first.Fingerprint, second.Fingerprint)
}

func TestRunFetchFailureReturnsError(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	result := newIngestor(fetcher, store, nil).Run(context.Background())

	require.Equal(t, StatusError, result.Status)
	require.Contains(t, result.Message, "fetch dataset")
	require.Zero(t, store.Len())
}

func TestRunMalformedPayloadReturnsError(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	fetcher := &fakeFetcher{body: []byte(`{"data": [`)}
	result := newIngestor(fetcher, store, nil).Run(context.Background())

	require.Equal(t, StatusError, result.Status)
	require.Contains(t, result.Message, "parse dataset")
	require.Zero(t, store.Len())
}

func TestRunPublishesNotificationOnUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewBlobStore()
	fetcher := &fakeFetcher{body: []byte(`{"data":[]}`)}
	pub := &recordingPublisher{}
	ing := newIngestor(fetcher, store, pub)

	result := ing.Run(ctx)
	require.Equal(t, StatusUpdated, result.Status)
	require.Equal(t, []string{"object-written"}, pub.topics)

	// Skipped runs do not notify.
	_ = ing.Run(ctx)
	require.Len(t, pub.topics, 1)
}

func TestRunPublishFailureDoesNotChangeOutcome(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	fetcher := &fakeFetcher{body: []byte(`{"data":[]}`)}
	pub := &recordingPublisher{err: errors.New("pubsub unavailable")}

	result := newIngestor(fetcher, store, pub).Run(context.Background())
	require.Equal(t, StatusUpdated, result.Status)
}

func TestCanonicalizePreservesNumberText(t *testing.T) {
	t.Parallel()

	out, err := Canonicalize([]byte(`{"b": 316128839, "a": 1.50}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1.50,"b":316128839}`, string(out))
	require.Equal(t, `{"a":1.50,"b":316128839}`, string(out))
}

func TestCanonicalizeRejectsTrailingData(t *testing.T) {
	t.Parallel()

	_, err := Canonicalize([]byte(`{"a":1} {"b":2}`))
	require.Error(t, err)
}
