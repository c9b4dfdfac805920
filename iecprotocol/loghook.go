package iecprotocol

import (
	log "github.com/sirupsen/logrus"
)

// FieldFacility is the logrus field naming the component that logged an
// entry. Its value is one of the Facility constants.
const FieldFacility = "facility"

// Facilities as they appear in remote log frames.
const (
	FacilityMain      = 'M'
	FacilityBus       = 'I'
	FacilityInterface = 'F'
)

// Severities as they appear in remote log frames.
const (
	SeveritySuccess = 'S'
	SeverityInfo    = 'I'
	SeverityWarning = 'W'
	SeverityError   = 'E'
)

// LogHook is a logrus hook that forwards entries to the host service as D
// frames, so a drive without a console can still be diagnosed.
type LogHook struct {
	link  *HostLink
	level log.Level
}

// NewLogHook forwards entries at level and above over link.
func NewLogHook(link *HostLink, level log.Level) *LogHook {
	return &LogHook{link: link, level: level}
}

// Levels implements log.Hook.
func (h *LogHook) Levels() []log.Level {
	var levels []log.Level
	for _, l := range log.AllLevels {
		if l <= h.level {
			levels = append(levels, l)
		}
	}
	return levels
}

// Fire implements log.Hook.
func (h *LogHook) Fire(entry *log.Entry) error {
	return h.link.SendLog(severityOf(entry.Level), facilityOf(entry), entry.Message)
}

func severityOf(l log.Level) byte {
	switch l {
	case log.PanicLevel, log.FatalLevel, log.ErrorLevel:
		return SeverityError
	case log.WarnLevel:
		return SeverityWarning
	case log.InfoLevel:
		return SeverityInfo
	default:
		return SeveritySuccess
	}
}

func facilityOf(entry *log.Entry) byte {
	switch v := entry.Data[FieldFacility].(type) {
	case string:
		if len(v) == 1 {
			return v[0]
		}
	case byte:
		return v
	case rune:
		return byte(v)
	}
	return FacilityMain
}
