package scoring

// Record is one scored (query, related image) comparison. Records are built
// once by the parser and never recomputed.
type Record struct {
	RankIndex       int     `json:"rank_index"`
	QueryImage      string  `json:"query_image"`
	RelatedImage    string  `json:"related_image"`
	MatchedPoints   int     `json:"matched_points"`
	Inliers         int     `json:"inliers"`
	LocalWeight     float64 `json:"local_weight"`
	LocalThreshold  float64 `json:"local_threshold"`
	GlobalThreshold float64 `json:"global_threshold"`
	GlobalScore     float64 `json:"global_score"`
	FinalScore      float64 `json:"final_score"`
	CustomScore     float64 `json:"custom_score"`
	FileName        string  `json:"file_name"`
	Path            string  `json:"path"`
	ExternalID      string  `json:"external_id"`
	Title           string  `json:"title"`
	URI             string  `json:"uri"`
}

// CustomScore is the ranking metric: (local weight + global score) scaled by
// the number of matched points.
func CustomScore(localWeight, globalScore float64, matchedPoints int) float64 {
	return (localWeight + globalScore) * float64(matchedPoints)
}
