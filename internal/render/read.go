package render

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/net/html"
)

// Score is the subset of a record embedded in a rendered grid cell.
type Score struct {
	RankIndex     int
	RelatedImage  string
	MatchedPoints int
	CustomScore   float64
	GlobalScore   float64
	FinalScore    float64
}

// ReadScores parses a rendered document and returns the embedded scores in
// document order.
func ReadScores(r io.Reader) ([]Score, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	var (
		scores []Score
		walk   func(*html.Node) error
	)
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode {
			if attrs := attrMap(n); attrs["data-custom-score"] != "" {
				score, err := scoreFromAttrs(attrs)
				if err != nil {
					return err
				}
				scores = append(scores, score)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return scores, nil
}

// ReadScoresFile is ReadScores over the document at path.
func ReadScoresFile(path string) ([]Score, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadScores(file)
}

func attrMap(n *html.Node) map[string]string {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}

func scoreFromAttrs(attrs map[string]string) (Score, error) {
	var (
		s   Score
		err error
	)
	s.RelatedImage = attrs["data-related-image"]
	if s.RankIndex, err = strconv.Atoi(attrs["data-rank-index"]); err != nil {
		return Score{}, fmt.Errorf("rank index: %w", err)
	}
	if s.MatchedPoints, err = strconv.Atoi(attrs["data-matched-points"]); err != nil {
		return Score{}, fmt.Errorf("matched points: %w", err)
	}
	if s.CustomScore, err = strconv.ParseFloat(attrs["data-custom-score"], 64); err != nil {
		return Score{}, fmt.Errorf("custom score: %w", err)
	}
	if s.GlobalScore, err = strconv.ParseFloat(attrs["data-global-score"], 64); err != nil {
		return Score{}, fmt.Errorf("global score: %w", err)
	}
	if s.FinalScore, err = strconv.ParseFloat(attrs["data-final-score"], 64); err != nil {
		return Score{}, fmt.Errorf("final score: %w", err)
	}
	return s, nil
}
