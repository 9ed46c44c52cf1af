package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
)

// Direction of a threshold question.
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionAbove Direction = "ABOVE"
	DirectionBelow Direction = "BELOW"
)

// Frame is the semantic shape of a market's question: what happens, to
// whom, and against which threshold.
type Frame struct {
	Action    domain.EventType
	Subject   string
	Direction Direction
	Threshold float64
}

// FrameExtractor parses a market's question frame.
type FrameExtractor interface {
	Extract(m domain.Market) (Frame, error)
}

var (
	aboveRe     = regexp.MustCompile(`(?i)\b(above|over|exceed(s|ing)?|higher than|more than|at least|reach(es)?|hit)\b|>`)
	belowRe     = regexp.MustCompile(`(?i)\b(below|under|less than|lower than|at most|drop(s)? to|fall(s)? to)\b|<`)
	thresholdRe = regexp.MustCompile(`(?i)\$\s?([\d,]+(?:\.\d+)?)(?:\s*([km])\b)?|\b([\d,]+(?:\.\d+)?)\s*(%|k\b|m\b|bps\b)`)
)

// PatternFrameExtractor derives frames from title patterns.
type PatternFrameExtractor struct{}

func (PatternFrameExtractor) Extract(m domain.Market) (Frame, error) {
	f := Frame{Action: matching.Event(m)}
	if ps := matching.Persons(m); len(ps) > 0 {
		f.Subject = ps[0]
	}
	switch {
	case belowRe.MatchString(m.Title):
		f.Direction = DirectionBelow
	case aboveRe.MatchString(m.Title):
		f.Direction = DirectionAbove
	}
	f.Threshold = parseThreshold(m.Title)
	return f, nil
}

func parseThreshold(title string) float64 {
	match := thresholdRe.FindStringSubmatch(title)
	if match == nil {
		return 0
	}
	num, unit := match[1], strings.ToLower(match[2])
	if num == "" {
		num, unit = match[3], strings.ToLower(match[4])
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", ""), 64)
	if err != nil {
		return 0
	}
	switch unit {
	case "k":
		v *= 1_000
	case "m":
		v *= 1_000_000
	}
	return v
}

// compareFrames returns the tier outcome for two frames.
func compareFrames(a, b Frame) TierOutcome {
	out := TierOutcome{Tier: TierSemanticFrame, Name: tierNames[TierSemanticFrame], Passed: true, Confidence: 0.8}
	comparable := false

	if a.Direction != DirectionNone && b.Direction != DirectionNone {
		if a.Direction != b.Direction {
			return out.fail(SeverityCritical, fmt.Sprintf("direction conflict: %s vs %s", a.Direction, b.Direction))
		}
		comparable = true
	}
	if a.Threshold > 0 && b.Threshold > 0 {
		if math.Abs(a.Threshold-b.Threshold)/math.Max(a.Threshold, b.Threshold) > 0.01 {
			return out.fail(SeverityCritical, fmt.Sprintf("threshold conflict: %g vs %g", a.Threshold, b.Threshold))
		}
		comparable = true
	}
	if a.Action != domain.EventUnknown && b.Action != domain.EventUnknown {
		if a.Action != b.Action {
			return out.fail(SeverityCritical, fmt.Sprintf("action conflict: %s vs %s", a.Action, b.Action))
		}
		comparable = true
	}
	if a.Subject != "" && b.Subject != "" {
		if !matching.PersonsCompatible([]string{a.Subject}, []string{b.Subject}) {
			out.Severity = SeverityHigh
			out.Reason = fmt.Sprintf("subject differs: %s vs %s", a.Subject, b.Subject)
			out.Confidence = 0.6
			return out
		}
		comparable = true
	}
	if comparable {
		out.Confidence = 1.0
		out.Reason = "frames agree"
	} else {
		out.Reason = "no comparable frame elements"
	}
	return out
}
