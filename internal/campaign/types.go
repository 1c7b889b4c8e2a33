package campaign

// MinInterval is the smallest accepted pause between two sends, in seconds.
// Enforced by the submission API and re-checked by the worker.
const MinInterval = 5

// Campaign job status lifecycle.
const (
	StatusQueued          = "queued"
	StatusRunning         = "running"
	StatusSucceeded       = "succeeded"
	StatusPartiallyFailed = "partially_failed"
	StatusFailed          = "failed"
)

// SaveMessageReq is the body of POST /salvar-mensagem.
type SaveMessageReq struct {
	Titulo string `json:"titulo"`
	Texto  string `json:"texto"`
}

// SendCampaignReq is the body of POST /enviar-campanha. The numeric fields
// are pointers so an absent field can be told apart from a zero.
type SendCampaignReq struct {
	Numeros    string `json:"numeros"`
	IDMensagem *int64 `json:"id_mensagem"`
	Intervalo  *int   `json:"intervalo"`
}

// StatusResp is the envelope every POST route answers with.
type StatusResp struct {
	Status   string `json:"status"`
	Mensagem string `json:"mensagem"`
	JobID    string `json:"job_id,omitempty"`
}

// Job is the message carried through the dispatch channel. Delivery is
// at-least-once; a worker crash mid-job may cause duplicate sends.
type Job struct {
	JobID           string   `json:"job_id"`
	Recipients      []string `json:"recipients"`
	MessageBody     string   `json:"message_body"`
	IntervalSeconds int      `json:"interval_seconds"`
}
