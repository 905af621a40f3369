package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridcap/icafetch/internal/ica"
	"github.com/gridcap/icafetch/pkg/models"
)

type fakeSource struct {
	feeders []models.Feeder
	err     error
}

func (s *fakeSource) List(ctx context.Context) ([]models.Feeder, error) {
	return s.feeders, s.err
}

type fakeFetcher struct {
	payloads map[string][]byte
	errs     map[string]error
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		payloads: map[string][]byte{},
		errs:     map[string]error{},
		calls:    map[string]int{},
	}
}

func (f *fakeFetcher) FetchTimeseries(ctx context.Context, feederID string) ([]byte, error) {
	f.calls[feederID]++
	if err := f.errs[feederID]; err != nil {
		return nil, err
	}
	return f.payloads[feederID], nil
}

type fakeSaver struct {
	saved    map[string][]byte
	existing map[string]bool
}

func newFakeSaver() *fakeSaver {
	return &fakeSaver{saved: map[string][]byte{}, existing: map[string]bool{}}
}

func (s *fakeSaver) Save(feederID string, payload []byte) error {
	s.saved[feederID] = payload
	return nil
}

func (s *fakeSaver) Existing() (map[string]bool, error) {
	return s.existing, nil
}

type fakeRecorder struct {
	records []models.DownloadRecord
}

func (r *fakeRecorder) InsertDownload(rec *models.DownloadRecord) error {
	r.records = append(r.records, *rec)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_FailureDoesNotBlockOthers(t *testing.T) {
	// Two feeders: F100 succeeds, F101 fails with a transport error. The run
	// must save F100's payload byte-for-byte, skip F101, and still succeed.
	source := &fakeSource{feeders: []models.Feeder{{ID: "F100"}, {ID: "F101"}}}
	fetcher := newFakeFetcher()
	fetcher.payloads["F100"] = []byte("t,v\n1,2\n")
	fetcher.errs["F101"] = errors.New("connection reset")
	saver := newFakeSaver()
	recorder := &fakeRecorder{}

	summary, err := New(source, fetcher, saver, recorder, testLogger()).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, []byte("t,v\n1,2\n"), saver.saved["F100"])
	_, savedF101 := saver.saved["F101"]
	assert.False(t, savedF101)

	assert.Equal(t, 2, summary.Listed)
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, []string{"F101"}, summary.Failed)

	require.Len(t, recorder.records, 2)
	assert.Equal(t, models.StatusDownloaded, recorder.records[0].Status)
	assert.Equal(t, models.StatusFailed, recorder.records[1].Status)
	assert.Contains(t, recorder.records[1].Error, "connection reset")
}

func TestRun_OneAttemptPerFeeder(t *testing.T) {
	source := &fakeSource{feeders: []models.Feeder{{ID: "F100"}, {ID: "F101"}, {ID: "F100"}}}
	fetcher := newFakeFetcher()
	fetcher.payloads["F100"] = []byte("a")
	fetcher.payloads["F101"] = []byte("b")

	summary, err := New(source, fetcher, newFakeSaver(), nil, testLogger()).Run(context.Background(), Options{})
	require.NoError(t, err)

	// Duplicate listing entries are deduped to a single attempt
	assert.Equal(t, 1, fetcher.calls["F100"])
	assert.Equal(t, 1, fetcher.calls["F101"])
	assert.Equal(t, 2, summary.Listed)
}

func TestRun_EmptyInventory(t *testing.T) {
	source := &fakeSource{}
	saver := newFakeSaver()

	summary, err := New(source, newFakeFetcher(), saver, nil, testLogger()).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Zero(t, summary.Listed)
	assert.Zero(t, summary.Attempted)
	assert.Empty(t, saver.saved)
}

func TestRun_ListingFailureIsFatal(t *testing.T) {
	source := &fakeSource{err: errors.New("index unreachable")}

	_, err := New(source, newFakeFetcher(), newFakeSaver(), nil, testLogger()).Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing feeders")
}

func TestRun_SkipsExistingUnlessForced(t *testing.T) {
	source := &fakeSource{feeders: []models.Feeder{{ID: "F100"}, {ID: "F101"}}}
	fetcher := newFakeFetcher()
	fetcher.payloads["F100"] = []byte("a")
	fetcher.payloads["F101"] = []byte("b")
	saver := newFakeSaver()
	saver.existing["F100"] = true

	summary, err := New(source, fetcher, saver, nil, testLogger()).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Attempted)
	assert.Zero(t, fetcher.calls["F100"])

	// Force redownloads everything
	summary, err = New(source, fetcher, saver, nil, testLogger()).Run(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.Zero(t, summary.Skipped)
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 1, fetcher.calls["F100"])
}

func TestRun_Limit(t *testing.T) {
	source := &fakeSource{feeders: []models.Feeder{{ID: "F100"}, {ID: "F101"}, {ID: "F102"}}}
	fetcher := newFakeFetcher()
	for _, id := range []string{"F100", "F101", "F102"} {
		fetcher.payloads[id] = []byte("x")
	}

	summary, err := New(source, fetcher, newFakeSaver(), nil, testLogger()).Run(context.Background(), Options{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 2, summary.Downloaded)
}

func TestRun_AuthFailureStopsRun(t *testing.T) {
	source := &fakeSource{feeders: []models.Feeder{{ID: "F100"}, {ID: "F101"}}}
	fetcher := newFakeFetcher()
	fetcher.errs["F100"] = &ica.AuthError{StatusCode: 401, Message: "authentication failed"}
	fetcher.payloads["F101"] = []byte("b")
	recorder := &fakeRecorder{}

	_, err := New(source, fetcher, newFakeSaver(), recorder, testLogger()).Run(context.Background(), Options{})
	require.Error(t, err)

	var authErr *ica.AuthError
	assert.True(t, errors.As(err, &authErr))

	// The rejected session stops the run before F101 is attempted
	assert.Zero(t, fetcher.calls["F101"])
	require.Len(t, recorder.records, 1)
	assert.Equal(t, models.StatusFailed, recorder.records[0].Status)
}

func TestRun_NilRecorder(t *testing.T) {
	source := &fakeSource{feeders: []models.Feeder{{ID: "F100"}}}
	fetcher := newFakeFetcher()
	fetcher.payloads["F100"] = []byte("a")

	_, err := New(source, fetcher, newFakeSaver(), nil, testLogger()).Run(context.Background(), Options{})
	require.NoError(t, err)
}
