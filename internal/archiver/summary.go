package archiver

import (
	"github.com/auditlake/audit-archiver/internal/metrics"
)

// Failure records why one record fell out of the pipeline.
type Failure struct {
	MessageID string `json:"messageId"`
	Reason    string `json:"reason"`
}

// Summary is the structured outcome of one batch invocation.
// SuccessfulRecords + FailedRecords always equals TotalRecords.
type Summary struct {
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
	GroupsProcessed   int
	Failures          []Failure
}

func (s *Summary) fail(stage, messageID, reason, kind string) {
	s.FailedRecords++
	s.Failures = append(s.Failures, Failure{MessageID: messageID, Reason: reason})
	if m := metrics.Get(); m != nil {
		m.IncRecordsFailed(stage, kind)
	}
}

func (s *Summary) succeed(stage string) {
	s.SuccessfulRecords++
	if m := metrics.Get(); m != nil {
		m.IncRecordsProcessed(stage)
	}
}

// Response is the completion contract returned to the caller, rendered
// even when some records failed. A fatal configuration or orchestrator
// error propagates instead, with no partial response.
type Response struct {
	StatusCode int          `json:"statusCode"`
	Body       ResponseBody `json:"body"`
}

// ResponseBody carries the invocation counts.
type ResponseBody struct {
	TotalRecords      int `json:"totalRecords"`
	SuccessfulRecords int `json:"successfulRecords"`
	FailedRecords     int `json:"failedRecords"`
	GroupsProcessed   int `json:"groupsProcessed"`
}

// Response renders the summary as the caller-facing completion contract.
func (s Summary) Response() Response {
	return Response{
		StatusCode: 200,
		Body: ResponseBody{
			TotalRecords:      s.TotalRecords,
			SuccessfulRecords: s.SuccessfulRecords,
			FailedRecords:     s.FailedRecords,
			GroupsProcessed:   s.GroupsProcessed,
		},
	}
}
