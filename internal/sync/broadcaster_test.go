package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/analytics"
	"github.com/dgnsrekt/auction-profile/internal/data"
)

type fakeReporter struct {
	price float64
}

func (f *fakeReporter) Report(_ context.Context, req analytics.Request) analytics.Report {
	return analytics.Report{Quote: data.Quote{Symbol: req.Symbol, Price: f.price}}
}

type sseEvent struct {
	name string
	id   string
	data string
}

func readEvent(t *testing.T, sc *bufio.Scanner) sseEvent {
	t.Helper()
	var ev sseEvent
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			return ev
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "id: "):
			ev.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
	t.Fatalf("stream ended: %v", sc.Err())
	return ev
}

func TestBroadcasterSnapshotThenReports(t *testing.T) {
	reports := &fakeReporter{price: 101}
	b := NewBroadcaster("tsla", reports, time.Hour, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(b.HandleSSE))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	snap := readEvent(t, sc)
	assert.Equal(t, eventSnapshot, snap.name)
	assert.Equal(t, "1", snap.id)

	var got ReportEvent
	require.NoError(t, json.Unmarshal([]byte(snap.data), &got))
	assert.Equal(t, "TSLA", got.Symbol)
	assert.Equal(t, 101.0, got.Report.Price)
	assert.Equal(t, 1, b.ClientCount())

	reports.price = 102
	b.OnRefresh(context.Background(), &data.Quote{Symbol: "TSLA", Price: 102})

	ev := readEvent(t, sc)
	assert.Equal(t, eventReport, ev.name)
	assert.Equal(t, "2", ev.id)
	require.NoError(t, json.Unmarshal([]byte(ev.data), &got))
	assert.Equal(t, 102.0, got.Report.Price)

	cancel()
	require.Eventually(t, func() bool { return b.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestBroadcasterSkipsWorkWithoutClients(t *testing.T) {
	b := NewBroadcaster("TSLA", &fakeReporter{}, time.Hour, zap.NewNop())
	b.OnRefresh(context.Background(), &data.Quote{Symbol: "TSLA"})
	assert.Equal(t, uint64(0), b.sequence)
}

func TestBroadcasterDeliversIncreasingIDs(t *testing.T) {
	b := NewBroadcaster("TSLA", &fakeReporter{price: 101}, time.Hour, zap.NewNop())
	client := &sseClient{
		id:     "c1",
		dataCh: make(chan []byte, 512),
		doneCh: make(chan struct{}),
	}
	first, _ := b.subscribe(context.Background(), client)
	defer b.removeClient(client)

	var wg gosync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.OnRefresh(context.Background(), &data.Quote{Symbol: "TSLA", Price: 101})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.publish(eventHeartbeat, func(seq uint64) any { return Heartbeat{Sequence: seq} })
			}
		}()
	}
	wg.Wait()

	require.Len(t, client.dataCh, 400)
	last := first
	for len(client.dataCh) > 0 {
		ev := <-client.dataCh
		var id uint64
		for _, line := range strings.Split(string(ev), "\n") {
			if strings.HasPrefix(line, "id: ") {
				parsed, err := strconv.ParseUint(strings.TrimPrefix(line, "id: "), 10, 64)
				require.NoError(t, err)
				id = parsed
			}
		}
		require.Equal(t, last+1, id)
		last = id
	}
}

func TestFormatEvent(t *testing.T) {
	out, err := formatEvent(eventHeartbeat, 7, Heartbeat{BroadcasterID: "b", Clients: 2})
	require.NoError(t, err)
	assert.Equal(t, "event: heartbeat\nid: 7\ndata: {\"broadcaster_id\":\"b\",\"timestamp\":0,\"sequence\":0,\"clients\":2}\n\n", string(out))
}
