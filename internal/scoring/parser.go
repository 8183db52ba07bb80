// Package scoring turns the engine's match trace into ranked score records.
package scoring

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"imgsim/internal/groundtruth"
	"imgsim/internal/logging"
	"imgsim/internal/metadata"
	"imgsim/internal/services"
)

const (
	headerLines     = 2
	traceFieldCount = 8
	noMatchPrefix   = "0.0"
	// Trace lines carry one bounding box per matched feature.
	maxTraceLine = 16 * 1024 * 1024
)

// Stats summarises one parse.
type Stats struct {
	Lines     int
	Emitted   int
	Filtered  int
	Malformed int
	Unmatched int
}

// Parser reads match traces.
type Parser struct {
	logger *slog.Logger
}

// NewParser returns a parser logging recovered problems to logger.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logging.NewComponentLogger(logger, "scoring")}
}

// ParseFile parses the trace at path. See Parse.
func (p *Parser) ParseFile(ctx context.Context, path string, pairs []groundtruth.Pair, table *metadata.Table) ([]Record, Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Stats{}, services.Wrap(services.ErrCacheInconsistency, "", "read match trace", path, err)
		}
		return nil, Stats{}, fmt.Errorf("open match trace: %w", err)
	}
	defer file.Close()
	return p.Parse(ctx, file, pairs, table)
}

// Parse skips the two header lines and turns each remaining line into a
// record. The i-th data line describes the i-th pair. Lines whose final
// score starts with "0.0" are filtered as no-match. Malformed lines are
// skipped and counted. Metadata misses leave the record's catalogue fields
// empty.
func (p *Parser) Parse(ctx context.Context, r io.Reader, pairs []groundtruth.Pair, table *metadata.Table) ([]Record, Stats, error) {
	logger := logging.WithContext(ctx, p.logger)
	var (
		records []Record
		stats   Stats
		line    int
		data    int
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxTraceLine)
	for scanner.Scan() {
		line++
		if line <= headerLines {
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		data++
		stats.Lines++

		fields := strings.Fields(text)
		if len(fields) < traceFieldCount {
			stats.Malformed++
			logger.Debug("skipping short trace line", logging.Int("line", line), logging.Int("fields", len(fields)))
			continue
		}
		if strings.HasPrefix(fields[7], noMatchPrefix) {
			stats.Filtered++
			continue
		}
		if data > len(pairs) {
			stats.Malformed++
			logger.Debug("trace line has no matching pair", logging.Int("line", line), logging.Int("pairs", len(pairs)))
			continue
		}

		record, err := parseFields(fields)
		if err != nil {
			stats.Malformed++
			logger.Debug("skipping malformed trace line", logging.Int("line", line), logging.Error(err))
			continue
		}
		pair := pairs[data-1]
		record.QueryImage = pair.Query
		record.RelatedImage = pair.Candidate
		record.FileName = pair.Candidate
		record.CustomScore = CustomScore(record.LocalWeight, record.GlobalScore, record.MatchedPoints)

		entry, err := table.Lookup(pair.Candidate)
		if err != nil {
			stats.Unmatched++
			logger.Debug("metadata lookup failed", logging.String("image", pair.Candidate), logging.Error(err))
		} else {
			record.Path = entry.Path
			record.ExternalID = entry.ExternalID
			record.Title = entry.Title
			record.URI = entry.URI
		}

		records = append(records, record)
		stats.Emitted++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, services.Wrap(services.ErrParse, "", "read match trace", "", err)
	}
	return records, stats, nil
}

func parseFields(fields []string) (Record, error) {
	var (
		rec Record
		err error
	)
	if rec.RankIndex, err = parseInt(fields[0]); err != nil {
		return Record{}, fmt.Errorf("index: %w", err)
	}
	if rec.MatchedPoints, err = parseInt(fields[1]); err != nil {
		return Record{}, fmt.Errorf("matched points: %w", err)
	}
	if rec.Inliers, err = parseInt(fields[2]); err != nil {
		return Record{}, fmt.Errorf("inliers: %w", err)
	}
	floats := []*float64{
		&rec.LocalWeight,
		&rec.LocalThreshold,
		&rec.GlobalThreshold,
		&rec.GlobalScore,
		&rec.FinalScore,
	}
	for i, dst := range floats {
		value, err := strconv.ParseFloat(fields[3+i], 64)
		if err != nil {
			return Record{}, fmt.Errorf("field %d: %w", 3+i, err)
		}
		*dst = value
	}
	return rec, nil
}

// parseInt accepts integral values the engine sometimes prints as floats.
func parseInt(token string) (int, error) {
	if v, err := strconv.Atoi(token); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("non-integral value %q", token)
	}
	return int(f), nil
}
