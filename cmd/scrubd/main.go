// scrubd runs the packet-scrubbing data plane: one worker per CPU core
// (unless -workers says otherwise), each fed frames read from one shared
// AF_PACKET socket and walking them through the ordered verdict pipeline,
// per spec.md §2 and §5.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/edgescrub/scrubcore/capture"
	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/control"
	"github.com/edgescrub/scrubcore/events"
	"github.com/edgescrub/scrubcore/lpm"
	"github.com/edgescrub/scrubcore/payload"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/policy"
	"github.com/edgescrub/scrubcore/ratelimit"
	"github.com/edgescrub/scrubcore/signature"
	"github.com/edgescrub/scrubcore/stages"
	"github.com/edgescrub/scrubcore/stats"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

var (
	iface        = flag.String("iface", "eth0", "Network interface to attach the scrubber to")
	workers      = flag.Int("workers", 0, "Number of worker goroutines; 0 means one per CPU core")
	promPort     = flag.String("prom", ":9090", "Prometheus metrics export address and port")
	eventSocket  = flag.String("events.socket", "", "Unix domain socket path for live event streaming; empty disables it")
	archivePath  = flag.String("events.archive", "", "zstd-compressed gob archive path for drop events; empty disables it")
	ringCapacity = flag.Int("events.ring-capacity", 4096, "Per-worker event ring capacity")
	statsPeriod  = flag.Duration("stats.period", 5*time.Second, "How often to aggregate and publish statistics")
	sweepPeriod  = flag.Duration("sweep.period", time.Minute, "How often to advance the LRU eviction generation on per-worker tables")
	synRatePPS   = flag.Uint64("rate.syn-pps", 50000, "Per-source SYN rate limit, in packets per second")
	udpRatePPS   = flag.Uint64("rate.udp-pps", 50000, "Per-source UDP rate limit, in packets per second")
	icmpRatePPS  = flag.Uint64("rate.icmp-pps", 5000, "Per-source ICMP rate limit, in packets per second")
	globalPPS    = flag.Uint64("rate.global-pps", 0, "Global packet-per-second limit; 0 disables it")
	globalBPS    = flag.Uint64("rate.global-bps", 0, "Global byte-per-second limit; 0 disables it")
	escLevel     = flag.Uint64("escalation.level", config.EscalationLow, "Initial escalation level (0=LOW .. 3=CRITICAL)")
	repThreshold = flag.Uint64("reputation.threshold", 500, "Reputation score at or above which a source is blocked")
)

func defaultStages() []pipeline.Stage {
	return []pipeline.Stage{
		stages.ACL{},
		stages.ThreatIntel{},
		stages.GeoIP{},
		stages.Reputation{},
		stages.Fragment{},
		stages.Signature{},
		stages.Payload{},
		stages.ProtoValidate{},
		stages.SynFlood{},
		stages.ACKFlood{},
		stages.UDPFlood{},
		stages.ICMPFlood{},
		stages.RateLimit{},
		stages.GlobalRateLimit{},
		stages.ConntrackUpdate{},
	}
}

func defaultConfig() map[config.Key]uint64 {
	return map[config.Key]uint64{
		config.Enabled:                  1,
		config.SynCookieEnabled:         1,
		config.ConntrackEnabled:         1,
		config.SynRatePPS:               *synRatePPS,
		config.UDPRatePPS:               *udpRatePPS,
		config.ICMPRatePPS:              *icmpRatePPS,
		config.GlobalRatePPS:            *globalPPS,
		config.GlobalRateBPS:            *globalBPS,
		config.EscalationLevel:          *escLevel,
		config.DNSStrictness:            config.DNSBasic,
		config.ACLEnabled:               1,
		config.ThreatIntelEnabled:       1,
		config.GeoIPEnabled:             1,
		config.ReputationEnabled:        1,
		config.FragmentEnabled:          1,
		config.SignatureEnabled:         1,
		config.PayloadEnabled:           1,
		config.ProtoValidationEnabled:   1,
		config.ACKFloodEnabled:          1,
		config.UDPFloodEnabled:          1,
		config.ICMPFloodEnabled:         1,
		config.ReputationThreshold:      *repThreshold,
		config.ReputationDecayPerSecond: 5,
	}
}

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "could not get args from environment variables")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	promSrv := prometheusx.MustStartPrometheus(*promPort)
	defer promSrv.Shutdown(ctx)

	sock, err := capture.Open(*iface)
	rtx.Must(err, "could not attach to interface %s", *iface)
	defer sock.Close()

	shared := pipeline.NewShared(time.Now())
	shared.Config.Replace(defaultConfig())
	shared.Global = ratelimit.NewGlobal(*globalPPS, *globalBPS, time.Now())

	handle := control.NewHandle(shared.Config, shared.Tables, shared.Signatures, shared.PayloadRules, shared.Country, shared.PortProto, shared.Cookie)
	handle.ReplaceTables(lpm.NewTables())
	handle.ReplaceSignatures(signature.NewTable())
	handle.ReplacePayloadRules(payload.NewTable())
	handle.ReplaceCountryPolicy(policy.NewCountryTable())
	handle.ReplacePortProtoMap(policy.NewPortProtoMap())
	handle.RotateSeed(uint64(time.Now().UnixNano()))

	var members events.FanOut
	if *eventSocket != "" {
		s := events.NewSocket(*eventSocket)
		rtx.Must(s.Listen(), "could not listen on event socket %s", *eventSocket)
		go s.Serve(ctx)
		members = append(members, s)
	}
	if *archivePath != "" {
		arc, err := events.NewArchiver(*archivePath)
		rtx.Must(err, "could not open event archive %s", *archivePath)
		defer arc.Close()
		members = append(members, arc)
	}
	var sink events.Sink
	if len(members) > 0 {
		sink = members
	}

	numWorkers := *workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	pl := pipeline.New(defaultStages())
	workerDeps := make([]*pipeline.Deps, numWorkers)
	rings := make([]*events.Ring, 0, numWorkers)
	for i := 0; i < numWorkers; i++ {
		in := make(chan pipeline.Frame, 256)
		w := pipeline.NewWorker(i, pl, shared, *ringCapacity, in, sock.Write)
		workerDeps[i] = w.Deps
		if w.Deps.Ring != nil {
			rings = append(rings, w.Deps.Ring)
		}
		go w.Run(ctx)
		go readLoop(ctx, sock, in)
	}
	if sink != nil && len(rings) > 0 {
		go events.Drain(ctx, rings, sink)
	}

	go seedRotationLoop(ctx, handle)
	go sweepLoop(ctx, *sweepPeriod, workerDeps)
	go statsLoop(ctx, *statsPeriod, workerDeps)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("scrubd: shutting down")
	cancel()
}

// readLoop feeds every frame captured on sock into in. One goroutine per
// worker calls ReadInto on the same shared socket; the kernel delivers
// each arriving frame to exactly one blocked caller, which is how the
// single AF_PACKET socket's traffic is fanned out across workers without
// a separate distribution step.
func readLoop(ctx context.Context, sock *capture.Socket, in chan<- pipeline.Frame) {
	buf := make([]byte, 65536)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := sock.ReadInto(buf)
		if err != nil {
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		select {
		case in <- pipeline.Frame{Data: frame}:
		case <-ctx.Done():
			return
		}
	}
}

// seedRotationLoop rotates the SYN-cookie seed every few minutes, per
// spec.md §6's "at least every few minutes" control-plane obligation.
func seedRotationLoop(ctx context.Context, handle *control.Handle) {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			handle.RotateSeed(uint64(now.UnixNano()))
		}
	}
}

// sweepLoop advances every worker's per-core table eviction generation on
// a fixed period; when a full shardmap.Map shard takes a new key it evicts
// the entry with the oldest generation, so this just keeps "stale"
// meaningful over time.
func sweepLoop(ctx context.Context, period time.Duration, deps []*pipeline.Deps) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, d := range deps {
				d.RateLimit.Bump()
				d.Conntrack.Bump()
				d.Reputation.Bump()
			}
		}
	}
}

// statsLoop aggregates every worker's Block on a fixed period and
// publishes the delta since the previous aggregate to Prometheus,
// avoiding double-counting cumulative counters against prometheus
// Counters.
func statsLoop(ctx context.Context, period time.Duration, deps []*pipeline.Deps) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	blocks := make([]*stats.Block, len(deps))
	for i, d := range deps {
		blocks[i] = d.Stats
	}
	var prev stats.Block
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := stats.Aggregate(blocks)
			stats.Publish(stats.Delta(prev, cur))
			prev = cur
			entries := 0
			for _, d := range deps {
				entries += d.Conntrack.Len()
			}
			stats.ConntrackEntries.Set(float64(entries))
		}
	}
}
