package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldEntityID    = "entity_id"
	FieldKind        = "kind"
	FieldAmountCents = "amount_cents"
	FieldCategory    = "category"
	FieldStatus      = "status"
	FieldProfitCents = "profit_cents"
	FieldVersion     = "version"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentPayments  = "payments"
	ComponentProfits   = "profits"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentScheduler = "scheduler"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCreate      = "create"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpRestore     = "restore"
	OpPurge       = "purge"
	OpComplete    = "complete"
	OpRecalculate = "recalculate"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntry adds the fields identifying an income or expense.
func (f LogFields) WithEntry(kind, id string, amountCents int64, category string) LogFields {
	f[FieldKind] = kind
	f[FieldEntityID] = id
	f[FieldAmountCents] = amountCents
	f[FieldCategory] = category
	return f
}

// WithPayment adds the fields identifying a payment.
func (f LogFields) WithPayment(id string, amountCents int64, status string) LogFields {
	f[FieldEntityID] = id
	f[FieldAmountCents] = amountCents
	f[FieldStatus] = status
	return f
}

// WithSummary adds the profit aggregate.
func (f LogFields) WithSummary(profitCents, version int64) LogFields {
	f[FieldProfitCents] = profitCents
	f[FieldVersion] = version
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
