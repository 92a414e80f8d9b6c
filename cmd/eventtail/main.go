// eventtail is a minimal reference client for the scrubber's event
// socket: it connects to the Unix domain socket events.Socket serves and
// prints each JSON-encoded events.Record line as it arrives, adapted
// from the teacher's example-eventsocket-client.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"os/signal"
	"syscall"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/rtx"

	"github.com/edgescrub/scrubcore/events"
)

var socketPath = flag.String("events.socket", "", "Unix domain socket path to connect to")

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "could not get args from environment variables")

	if *socketPath == "" {
		log.Fatal("-events.socket path is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := net.Dial("unix", *socketPath)
	rtx.Must(err, "could not connect to %s", *socketPath)
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var rec events.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			log.Println("eventtail: bad record, could not unmarshal:", err)
			continue
		}
		log.Printf("%s %s:%d -> %s:%d proto=%d attack=%s reason=%s\n",
			rec.Timestamp.Format("15:04:05.000"), rec.SrcIP, rec.SrcPort, rec.DstIP, rec.DstPort,
			rec.Protocol, rec.AttackType, rec.DropReason)
	}
}
