// Package influxdb optionally posts a single run-summary point to an
// InfluxDB bucket, the way the reference fleet-wide exporter posts
// per-record points for its own domain.
package influxdb

import (
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// Target names the InfluxDB server and destination bucket for an
// export.
type Target struct {
	Addr   string
	Token  string
	Org    string
	Bucket string
}

// RunStats is the set of fields posted for one annotation run.
type RunStats struct {
	Time             time.Time
	RecordCount      int64
	AnnotatedCount   int64
	NoisyCount       int64
	ObjectCount      int64
	CompressionRatio float64
	RuntimeSeconds   float64
}

// ExportRunStats posts one point, measurement "annotation_run", to t's
// bucket. The last async write error, if any, is returned.
func ExportRunStats(t Target, s RunStats) error {
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Second)
	client := influxdb2.NewClientWithOptions(t.Addr, t.Token, opts)

	writeAPI := client.WriteAPI(t.Org, t.Bucket)

	errorsCh := writeAPI.Errors()
	var err error
	var wait sync.WaitGroup
	wait.Add(1)
	go func() {
		defer wait.Done()
		for e := range errorsCh {
			if e != nil {
				err = e
			}
		}
	}()

	p := influxdb2.NewPointWithMeasurement("annotation_run").
		SetTime(s.Time).
		AddField("record_count", s.RecordCount).
		AddField("annotated_count", s.AnnotatedCount).
		AddField("noisy_count", s.NoisyCount).
		AddField("object_count", s.ObjectCount).
		AddField("compression_ratio", s.CompressionRatio).
		AddField("runtime_seconds", s.RuntimeSeconds)

	writeAPI.WritePoint(p)
	writeAPI.Flush()
	// Closing the client closes writeAPI's error channel, which ends the
	// collecting goroutine.
	client.Close()
	wait.Wait()
	return err
}
