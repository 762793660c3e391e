package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUserID = "user_id"
	FieldRole   = "role"

	// Chat
	FieldCounterpart = "counterpart_id"
	FieldEvent       = "event"
	FieldSeq         = "seq"
	FieldConnID      = "conn_id"

	FieldService   = "service"
	FieldComponent = "component"
)
