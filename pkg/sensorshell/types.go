package sensorshell

import (
	"github.com/hackystat/hackystat-sensor-shell/internal/app/config"
	"github.com/hackystat/hackystat-sensor-shell/internal/domain"
	"github.com/hackystat/hackystat-sensor-shell/internal/ports"
)

// Record is a single telemetry event: the six fixed fields plus an ordered
// property list.
type Record = domain.Record

// Property is one (key, value) pair in a record's property list.
type Property = domain.Property

// Batch is an ordered sequence of records transmitted as one unit.
type Batch = domain.Batch

// Shell is the uniform operation surface over the single and multi
// pipelines.
type Shell = ports.Shell

// IngestClient is the ingestion server's three-operation HTTP contract.
type IngestClient = ports.IngestClient

// Spool is the durable on-disk queue of untransmitted batches.
type Spool = ports.Spool

// Reachability is the bounded liveness probe.
type Reachability = ports.Reachability

// Observability emits the shell's logs and metrics.
type Observability = ports.Observability

// Field is a structured log field.
type Field = ports.Field

// Config carries the validated shell settings.
type Config = config.Config

// MultiShellConfig holds the fan-out knobs inside Config.
type MultiShellConfig = config.MultiShellConfig
