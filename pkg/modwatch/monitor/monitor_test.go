package monitor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesainslie/modwatch/pkg/modwatch/diff"
	"github.com/jamesainslie/modwatch/pkg/modwatch/notify"
	"github.com/jamesainslie/modwatch/pkg/modwatch/snapshot"
	"github.com/jamesainslie/modwatch/pkg/modwatch/transport"
	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTransport serves a directory of mod archives from memory.
type memTransport struct {
	files   map[string][]byte
	order   []string
	listErr error
	closed  bool
}

func newMemTransport() *memTransport {
	return &memTransport{files: map[string][]byte{}}
}

func (m *memTransport) add(t *testing.T, name, version string) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("modDesc.xml")
	require.NoError(t, err)
	_, err = fmt.Fprintf(w, `<modDesc descVersion=%q><title><en>%s</en></title><author>Tester</author></modDesc>`, version, name)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	if _, ok := m.files[name]; !ok {
		m.order = append(m.order, name)
	}
	m.files[name] = buf.Bytes()
}

func (m *memTransport) remove(name string) {
	delete(m.files, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

func (m *memTransport) List(_ context.Context, _ string) ([]transport.Entry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	entries := make([]transport.Entry, 0, len(m.order))
	for _, n := range m.order {
		entries = append(entries, transport.Entry{Name: n, Size: int64(len(m.files[n]))})
	}
	return entries, nil
}

func (m *memTransport) Fetch(_ context.Context, p string) ([]byte, error) {
	data, ok := m.files[path.Base(p)]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (m *memTransport) Close() error {
	m.closed = true
	return nil
}

type fakeDeliverer struct {
	calls []notify.Message
	err   error
}

func (f *fakeDeliverer) Name() string { return "fake" }

func (f *fakeDeliverer) Deliver(_ context.Context, msg notify.Message) (notify.Result, error) {
	f.calls = append(f.calls, msg)
	if f.err != nil {
		return notify.Result{StatusCode: 500}, f.err
	}
	return notify.Result{Delivered: true, StatusCode: 204}, nil
}

type harness struct {
	remote    *memTransport
	deliverer *fakeDeliverer
	statePath string
	dialErr   error
}

func newHarness(t *testing.T) *harness {
	return &harness{
		remote:    newMemTransport(),
		deliverer: &fakeDeliverer{},
		statePath: filepath.Join(t.TempDir(), "state", "mod_state.json"),
	}
}

func (h *harness) monitor(dryRun bool) *Monitor {
	return New(Options{
		Remote:    transport.Options{Protocol: transport.SFTP, Host: "example.com"},
		RemoteDir: "/mods",
		StatePath: h.statePath,
		DryRun:    dryRun,
	}, Dependencies{
		Dial: func(context.Context, transport.Options) (transport.Transport, transport.Protocol, error) {
			if h.dialErr != nil {
				return nil, "", h.dialErr
			}
			return h.remote, transport.SFTP, nil
		},
		Deliverer: h.deliverer,
	})
}

func (h *harness) saved() *types.Inventory {
	return snapshot.New(h.statePath).Load()
}

func TestRun_FirstRunReportsEverythingAsAdded(t *testing.T) {
	h := newHarness(t)
	h.remote.add(t, "FS25_A.zip", "1")
	h.remote.add(t, "FS25_B.zip", "1")

	report, err := h.monitor(false).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "sftp", report.Protocol)
	assert.Equal(t, diff.Summary{Added: 2}, report.Summary())
	assert.True(t, report.Saved)
	assert.True(t, report.Delivery.Delivered)
	assert.True(t, h.remote.closed)
	assert.False(t, report.Finished.Before(report.Started))

	require.Len(t, h.deliverer.calls, 1)
	assert.Equal(t, notify.ColorAdded, h.deliverer.calls[0].Color)
	assert.Equal(t, []string{"FS25_A.zip", "FS25_B.zip"}, h.saved().Names())
}

func TestRun_NoChangesSkipsDelivery(t *testing.T) {
	h := newHarness(t)
	h.remote.add(t, "FS25_A.zip", "1")

	_, err := h.monitor(false).Run(context.Background())
	require.NoError(t, err)
	h.deliverer.calls = nil

	report, err := h.monitor(false).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Changes)
	assert.True(t, report.Delivery.Skipped)
	assert.Empty(t, h.deliverer.calls)
	assert.True(t, report.Saved)
}

func TestRun_DetectsUpdatesAndRemovals(t *testing.T) {
	h := newHarness(t)
	h.remote.add(t, "FS25_A.zip", "1")
	h.remote.add(t, "FS25_B.zip", "1")
	_, err := h.monitor(false).Run(context.Background())
	require.NoError(t, err)

	h.remote.add(t, "FS25_A.zip", "2")
	h.remote.remove("FS25_B.zip")

	report, err := h.monitor(false).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Changes, 2)
	assert.Equal(t, diff.Updated, report.Changes[0].Kind)
	assert.Equal(t, "1", report.Changes[0].PreviousVersion)
	assert.Equal(t, diff.Removed, report.Changes[1].Kind)
	assert.Equal(t, notify.ColorChanged, h.deliverer.calls[len(h.deliverer.calls)-1].Color)
	assert.Equal(t, []string{"FS25_A.zip"}, h.saved().Names())
}

func TestRun_TransportFailureLeavesSnapshotAlone(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{"dial", func(h *harness) { h.dialErr = errors.New("connection refused") }},
		{"list", func(h *harness) { h.remote.listErr = errors.New("permission denied") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.remote.add(t, "FS25_A.zip", "1")
			_, err := h.monitor(false).Run(context.Background())
			require.NoError(t, err)
			h.deliverer.calls = nil

			h.remote.remove("FS25_A.zip")
			tt.setup(h)

			report, err := h.monitor(false).Run(context.Background())
			require.ErrorIs(t, err, ErrTransport)
			require.NotNil(t, report)
			assert.False(t, report.Saved)
			assert.Empty(t, h.deliverer.calls)
			assert.Equal(t, []string{"FS25_A.zip"}, h.saved().Names())
		})
	}
}

func TestRun_DeliveryFailureStillSaves(t *testing.T) {
	h := newHarness(t)
	h.deliverer.err = errors.New("webhook returned 500")
	h.remote.add(t, "FS25_A.zip", "1")

	report, err := h.monitor(false).Run(context.Background())
	require.NoError(t, err)
	assert.Error(t, report.DeliveryErr)
	assert.False(t, report.Delivery.Delivered)
	assert.True(t, report.Saved)
	assert.Equal(t, 1, h.saved().Len())
}

func TestRun_DryRunNeitherDeliversNorSaves(t *testing.T) {
	h := newHarness(t)
	h.remote.add(t, "FS25_A.zip", "1")

	report, err := h.monitor(true).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Len(t, report.Changes, 1)
	assert.False(t, report.Saved)
	assert.Empty(t, h.deliverer.calls)

	info, err := snapshot.New(h.statePath).Stat()
	require.NoError(t, err)
	assert.False(t, info.Exists)
}

func TestRun_SaveFailureIsRunError(t *testing.T) {
	h := newHarness(t)
	h.remote.add(t, "FS25_A.zip", "1")

	// A directory where the snapshot file should be makes the rename fail.
	require.NoError(t, os.MkdirAll(h.statePath, 0o755))

	report, err := h.monitor(false).Run(context.Background())
	require.ErrorIs(t, err, ErrSave)
	require.NotNil(t, report)
	assert.False(t, report.Saved)
	assert.Len(t, h.deliverer.calls, 1)
}

func TestRun_ConcurrentRunIsRejected(t *testing.T) {
	h := newHarness(t)

	lock, err := snapshot.New(h.statePath).Lock()
	require.NoError(t, err)
	defer func() { _ = lock.Unlock() }()

	_, err = h.monitor(false).Run(context.Background())
	require.ErrorIs(t, err, snapshot.ErrLocked)
}

func TestRun_UsesInjectedClock(t *testing.T) {
	h := newHarness(t)
	h.remote.add(t, "FS25_A.zip", "1")

	at := time.Date(2025, 1, 2, 9, 5, 0, 0, time.UTC)
	m := h.monitor(false)
	m.deps.Now = func() time.Time { return at }

	report, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at, report.Started)
	require.Len(t, h.deliverer.calls, 1)
	assert.Equal(t, "Checked at 2025-01-02 09:05 AM", h.deliverer.calls[0].Footer)
}
