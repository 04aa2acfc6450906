package models

type AnalyzeCommentsRequest struct {
	Comments []string `json:"comments"`
}

type AnalyzeCommentsResponse struct {
	Sentiments []float64 `json:"sentiments"`
}

type LogRequest struct {
	Message string `json:"message"`
}

type CommentIDRequest struct {
	ID string `json:"id"`
}

type FilterCommentsRequest struct {
	Comments []CommentText `json:"comments"`
}

type ThresholdResponse struct {
	Threshold float64 `json:"threshold"`
}
