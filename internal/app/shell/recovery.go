package shell

import (
	"github.com/hackystat/hackystat-sensor-shell/internal/adapters/observability"
	"github.com/hackystat/hackystat-sensor-shell/internal/ports"
)

// recoverOffline replays spooled batches through a dedicated helper shell.
// The helper runs with caching, recovery, autoflush, and the size trigger
// all disabled, so one spool file maps to exactly one upload: a failure
// cannot re-spool a duplicate file, and a success cannot pollute the main
// shell's counters. A file is deleted only when the helper's send
// acknowledges the full batch; otherwise it stays for a later attempt.
func (s *Single) recoverOffline() {
	if !s.probe.IsPingable() {
		s.obs.LogInfo("offline data not recovered, host not reachable")
		return
	}
	names, err := s.spool.List()
	if err != nil {
		s.obs.LogError("offline recovery, spool listing failed", err)
		return
	}
	if len(names) == 0 {
		return
	}
	s.obs.LogInfo("recovering offline data", ports.Field{Key: "files", Value: len(names)})

	helper, err := s.newRecoveryHelper()
	if err != nil {
		s.obs.LogError("offline recovery, helper shell construction failed", err)
		return
	}

	for _, name := range names {
		batch, err := s.spool.Read(name)
		if err != nil {
			s.obs.LogError("offline recovery, unreadable file left in place", err,
				ports.Field{Key: "file", Value: name})
			continue
		}

		replayable := true
		for _, rec := range batch {
			if err := helper.Add(rec); err != nil {
				s.obs.LogError("offline recovery, invalid record, file left in place", err,
					ports.Field{Key: "file", Value: name})
				replayable = false
				break
			}
		}
		if !replayable {
			helper.dropBuffer()
			continue
		}

		sent, err := helper.Send()
		if err != nil {
			s.obs.LogError("offline recovery, send failed", err,
				ports.Field{Key: "file", Value: name})
			continue
		}
		if sent != len(batch) {
			s.obs.LogWarn("offline batch not fully acknowledged, file left in place",
				ports.Field{Key: "file", Value: name},
				ports.Field{Key: "acknowledged", Value: sent},
				ports.Field{Key: "records", Value: len(batch)})
			continue
		}
		if err := s.spool.Delete(name); err != nil {
			s.obs.LogError("offline recovery, delete failed", err,
				ports.Field{Key: "file", Value: name})
			continue
		}
		s.obs.LogInfo("recovered offline batch",
			ports.Field{Key: "file", Value: name},
			ports.Field{Key: "records", Value: len(batch)})
	}

	if err := helper.Quit(); err != nil {
		s.obs.LogError("offline recovery, helper quit failed", err)
	}
}

// newRecoveryHelper clones the shell's configuration with every deferred
// path switched off and builds a helper over the same client, spool, and
// probe. The helper logs under its own tool name.
func (s *Single) newRecoveryHelper() (*Single, error) {
	cfg := s.cfg.Clone()
	disabled := false
	cfg.Offline.CacheEnabled = &disabled
	cfg.Offline.RecoveryEnabled = &disabled
	zeroInterval := 0.0
	cfg.AutoSend.TimeInterval = &zeroInterval
	zeroBuffer := 0
	cfg.AutoSend.MaxBuffer = &zeroBuffer
	cfg.MultiShell.Enabled = false

	tool := s.tool + recoveryToolSuffix
	obs, err := observability.New(cfg.LogDir(), tool, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	helper, err := newSingle(cfg, tool, Dependencies{
		Client: s.client,
		Spool:  s.spool,
		Probe:  s.probe,
		Obs:    obs,
	}, false)
	if err != nil {
		_ = obs.Close()
		return nil, err
	}
	helper.closeObs = true
	return helper, nil
}
