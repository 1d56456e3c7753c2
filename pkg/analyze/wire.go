package analyze

type analyzeRequest struct {
	Documents []requestDocument `json:"documents"`
}

type requestDocument struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

type sentimentResponse struct {
	Documents []struct {
		ID               string `json:"id"`
		Sentiment        string `json:"sentiment"`
		ConfidenceScores struct {
			Positive float64 `json:"positive"`
			Neutral  float64 `json:"neutral"`
			Negative float64 `json:"negative"`
		} `json:"confidenceScores"`
	} `json:"documents"`
	Errors []responseError `json:"errors"`
}

type keyPhrasesResponse struct {
	Documents []struct {
		ID         string   `json:"id"`
		KeyPhrases []string `json:"keyPhrases"`
	} `json:"documents"`
	Errors []responseError `json:"errors"`
}

type entitiesResponse struct {
	Documents []struct {
		ID       string `json:"id"`
		Entities []struct {
			Text            string  `json:"text"`
			Category        string  `json:"category"`
			ConfidenceScore float64 `json:"confidenceScore"`
		} `json:"entities"`
	} `json:"documents"`
	Errors []responseError `json:"errors"`
}

type responseError struct {
	ID    string `json:"id"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
