package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/glefebvre/iptvcore/internal/idgen"
	"github.com/glefebvre/iptvcore/internal/logger"
	"github.com/glefebvre/iptvcore/internal/models"
)

const (
	headerPrefix = "#EXTM3U"
	extinfPrefix = "#EXTINF:"

	attrLogo  = "tvg-logo"
	attrGroup = "group-title"
)

var (
	extinfRegex   = regexp.MustCompile(`^#EXTINF:\s*([^,]*),(.*)$`)
	durationRegex = regexp.MustCompile(`^(-?\d*\.?\d+)`)
	quotedRegex   = regexp.MustCompile(`(\w+(?:-\w+)*)="([^"]*)"`)
	unquotedRegex = regexp.MustCompile(`(\w+(?:-\w+)*)=([^\s"]+)`)
)

// Result is the outcome of parsing one playlist
type Result struct {
	Channels []models.Channel
	// Errors holds non-fatal messages for malformed EXTINF lines; nil when clean
	Errors []string
	Stats  ParseStats
}

// ParseStats tracks parsing statistics
type ParseStats struct {
	TotalLines int
	Channels   int
	Warnings   int
	// Dropped counts metadata lines that never got a URL line
	Dropped  int
	Duration time.Duration
}

// Entry is the metadata carried by one EXTINF line
type Entry struct {
	Name       string
	Duration   *float64
	Logo       string
	Group      string
	Attributes map[string]string
}

// Parser turns M3U text into channel records
type Parser struct {
	logger *logger.Logger
}

// NewParser creates a parser that logs a summary to log
func NewParser(log *logger.Logger) *Parser {
	if log == nil {
		log = logger.AppLogger()
	}
	return &Parser{logger: log}
}

// Parse parses content with the application logger
func Parse(content string) Result {
	return NewParser(nil).Parse(content)
}

// Parse extracts channels from M3U content.
//
// Parsing is best effort: a malformed EXTINF line is reported in
// Result.Errors and skipped, and metadata without a following URL line is
// dropped without an error. Channels keep their order of appearance.
func (p *Parser) Parse(content string) Result {
	start := time.Now()
	var (
		result  Result
		pending *Entry
	)

	lines := strings.Split(content, "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		result.Stats.TotalLines++

		if strings.HasPrefix(line, headerPrefix) {
			continue
		}

		if strings.HasPrefix(line, extinfPrefix) {
			entry, err := ParseExtinf(line)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Error parsing line %d: %v", i+1, err))
				continue
			}
			if pending != nil {
				result.Stats.Dropped++
			}
			pending = entry
			continue
		}

		// Other comments and directives
		if strings.HasPrefix(line, "#") || pending == nil {
			continue
		}

		// URL line completes the pending entry
		if pending.Name != "" {
			result.Channels = append(result.Channels, models.Channel{
				ID:       idgen.ChannelID(pending.Name, line),
				Name:     pending.Name,
				URL:      line,
				Group:    pending.Group,
				Logo:     pending.Logo,
				Duration: pending.Duration,
			})
		}
		pending = nil
	}

	if pending != nil {
		result.Stats.Dropped++
	}

	result.Stats.Channels = len(result.Channels)
	result.Stats.Warnings = len(result.Errors)
	result.Stats.Duration = time.Since(start)

	p.logger.WithFields(map[string]interface{}{
		"lines":       result.Stats.TotalLines,
		"channels":    result.Stats.Channels,
		"warnings":    result.Stats.Warnings,
		"dropped":     result.Stats.Dropped,
		"duration_ms": result.Stats.Duration.Milliseconds(),
	}).Debug("M3U parsing complete")

	return result
}

// ParseExtinf parses a single #EXTINF line.
//
// Everything after the first comma is the channel name; the part before it
// holds the duration and the attributes. Quoted key="value" attributes win
// over unquoted key=value ones for the same key.
func ParseExtinf(line string) (*Entry, error) {
	match := extinfRegex.FindStringSubmatch(line)
	if match == nil {
		return nil, fmt.Errorf("invalid EXTINF format")
	}
	params, name := match[1], match[2]

	entry := &Entry{
		Name:       strings.TrimSpace(name),
		Attributes: make(map[string]string),
	}

	if m := durationRegex.FindStringSubmatch(params); m != nil {
		if d, err := strconv.ParseFloat(m[1], 64); err == nil && d != -1 {
			entry.Duration = &d
		}
	}

	for _, m := range quotedRegex.FindAllStringSubmatch(params, -1) {
		entry.Attributes[m[1]] = m[2]
	}
	for _, m := range unquotedRegex.FindAllStringSubmatch(params, -1) {
		if _, ok := entry.Attributes[m[1]]; !ok {
			entry.Attributes[m[1]] = m[2]
		}
	}

	entry.Logo = entry.Attributes[attrLogo]
	entry.Group = entry.Attributes[attrGroup]

	return entry, nil
}
