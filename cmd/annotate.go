/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/rotblauer/aistraj/checkpoint"
	"github.com/rotblauer/aistraj/common"
	"github.com/rotblauer/aistraj/conceptual"
	"github.com/rotblauer/aistraj/metrics"
	influxexport "github.com/rotblauer/aistraj/metrics/influxdb"
	"github.com/rotblauer/aistraj/params"
	"github.com/rotblauer/aistraj/router"
	"github.com/rotblauer/aistraj/sink"
	"github.com/rotblauer/aistraj/source"
	"github.com/rotblauer/aistraj/state"
	"github.com/rotblauer/aistraj/vesselinfo"
)

var (
	optCheckpointDB string
	optInfluxAddr   string
	optInfluxToken  string
	optInfluxOrg    string
	optInfluxBucket string
	optLRUSize      int
)

// annotateCmd represents the annotate command
var annotateCmd = &cobra.Command{
	Use:   "annotate input_file id_attr timestamp_attr settings_json vessel_info_csv output_file annotated_only",
	Short: "Annotate a stream of position reports with mobility events",
	Long: `annotate reads input_file and writes output_file, one row per
retained observation plus a header row.

Arguments:

  input_file       Path to the space-delimited position report stream.
  id_attr          1-based column index of the object id, or a negative
                    number to select single-object mode (no id column).
  timestamp_attr   1-based column index of the timestamp.
  settings_json    Path to the per-vessel-type mobility thresholds document.
  vessel_info_csv   Path to the semicolon-delimited id;name;type table.
  output_file      Path to write annotated results to.
  annotated_only   "true" to emit only annotated or noise points, "false"
                    to emit every retained point.

Flags:

  --checkpoint-db   Persist and resume per-object state across runs.
  --influx-addr     Export a run summary to an InfluxDB bucket.
  --lru-size        Bound the vessel-type resolution cache (default 4096).
`,
	Args: cobra.ExactArgs(7),
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)

	annotateCmd.Flags().StringVar(&optCheckpointDB, "checkpoint-db", "",
		"Path to a bbolt database used to persist and resume per-object state.")
	annotateCmd.Flags().StringVar(&optInfluxAddr, "influx-addr", "",
		"InfluxDB server address; if set, a run summary is exported there.")
	annotateCmd.Flags().StringVar(&optInfluxToken, "influx-token", "", "InfluxDB auth token.")
	annotateCmd.Flags().StringVar(&optInfluxOrg, "influx-org", "", "InfluxDB organization.")
	annotateCmd.Flags().StringVar(&optInfluxBucket, "influx-bucket", "", "InfluxDB bucket.")
	annotateCmd.Flags().IntVar(&optLRUSize, "lru-size", 4096,
		"Bound on the vessel-type/config resolution cache.")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	started := time.Now()

	inputFile, err := homedir.Expand(args[0])
	if err != nil {
		return err
	}
	idAttr, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("id_attr: %w", err)
	}
	timestampAttr, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("timestamp_attr: %w", err)
	}
	settingsFile, err := homedir.Expand(args[3])
	if err != nil {
		return err
	}
	vesselInfoFile, err := homedir.Expand(args[4])
	if err != nil {
		return err
	}
	outputFile, err := homedir.Expand(args[5])
	if err != nil {
		return err
	}
	annotatedOnly, err := strconv.ParseBool(args[6])
	if err != nil {
		return fmt.Errorf("annotated_only: %w", err)
	}

	configs, err := params.LoadVesselConfigs(settingsFile)
	if err != nil {
		return err
	}

	var vessels *vesselinfo.Table
	if vesselInfoFile != "" {
		vessels, err = vesselinfo.Load(vesselInfoFile)
		if err != nil {
			return err
		}
	}

	in, err := os.Open(inputFile)
	if err != nil {
		return err
	}
	defer in.Close()

	t0, err := source.ReadStartTimestamp(in, timestampAttr)
	if err != nil {
		return fmt.Errorf("read start timestamp: %w", err)
	}
	if _, err := in.Seek(0, 0); err != nil {
		return err
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	includeID := idAttr >= 1
	sinkOut := sink.New(includeID)

	var cp *checkpoint.Store
	if optCheckpointDB != "" {
		cp, err = checkpoint.Open(optCheckpointDB)
		if err != nil {
			return err
		}
		defer cp.Close()
	}

	rt, err := router.New(configs, vesselResolver{vessels}, sinkOut, optLRUSize)
	if err != nil {
		return err
	}

	if cp != nil {
		if err := restoreCheckpoints(rt, cp, configs, sinkOut); err != nil {
			return err
		}
	}

	rec := metrics.New()
	rec.StartTicking(10 * time.Second)
	defer rec.Stop()

	src := source.Open(in, idAttr)
	defer src.Close()

	interrupt := common.Interrupted()

	t := t0
batchLoop:
	for !src.Exhausted() {
		select {
		case <-interrupt:
			slog.Warn("interrupted, draining in-flight state")
			break batchLoop
		default:
		}

		t += source.Slide
		batch := src.Consume(t)
		rec.MarkRecords(len(batch))
		for _, obs := range batch {
			rt.Dispatch(obs)
		}
	}
	rt.Drain()

	if cp != nil {
		if err := saveCheckpoints(rt, cp); err != nil {
			return err
		}
	}

	if err := sinkOut.EmitResults(out, annotatedOnly); err != nil {
		return err
	}

	recCount := src.RecordCount()
	summary := metrics.Summary{
		RecordCount:      recCount,
		AnnotatedCount:   sinkOut.CountAnnotated(),
		NoisyCount:       sinkOut.CountNoisy(),
		ObjectCount:      rt.Len(),
		Runtime:          time.Since(started),
		CompressionRatio: metrics.CompressionRatio(recCount, sinkOut.CountAnnotated()),
	}
	metrics.LogSummary(summary)

	if optInfluxAddr != "" {
		err := influxexport.ExportRunStats(influxexport.Target{
			Addr:   optInfluxAddr,
			Token:  optInfluxToken,
			Org:    optInfluxOrg,
			Bucket: optInfluxBucket,
		}, influxexport.RunStats{
			Time:             started,
			RecordCount:      int64(summary.RecordCount),
			AnnotatedCount:   int64(summary.AnnotatedCount),
			NoisyCount:       int64(summary.NoisyCount),
			ObjectCount:      int64(summary.ObjectCount),
			CompressionRatio: summary.CompressionRatio,
			RuntimeSeconds:   summary.Runtime.Seconds(),
		})
		if err != nil {
			slog.Warn("influxdb export failed", "err", err)
		}
	}

	return nil
}

// vesselResolver adapts a possibly-nil *vesselinfo.Table to
// router.VesselTypeResolver, since a run with no vessel info file
// resolves every object to the default vessel type.
type vesselResolver struct{ t *vesselinfo.Table }

func (v vesselResolver) TypeOf(oid conceptual.ObjectID) string {
	if v.t == nil {
		return params.DefaultVesselType
	}
	return v.t.TypeOf(oid)
}

func restoreCheckpoints(rt *router.Router, cp *checkpoint.Store, configs map[string]*params.Config, s *sink.Sink) error {
	saved, err := cp.LoadAll()
	if err != nil {
		return err
	}
	for oid, rec := range saved {
		cfg := params.Lookup(configs, params.DefaultVesselType)
		rt.Restore(oid, state.Restore(oid, cfg, s, rec.CurTime, rec.Status, rec.Seq))
	}
	return nil
}

func saveCheckpoints(rt *router.Router, cp *checkpoint.Store) error {
	for oid, st := range rt.Snapshot() {
		curTime, status, seq := st.Snapshot()
		if err := cp.Save(oid, curTime, status, seq); err != nil {
			return err
		}
	}
	return nil
}
