package publishers

// Logger defines the logging surface publishers rely on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}

// logDelivery records a delivered report event; messageID is omitted when empty.
func logDelivery(log Logger, p Publisher, evt Event, messageID string) {
	fields := map[string]any{
		"publisher_id": p.ID(),
		"report_kind":  evt.ReportKind,
		"report_date":  evt.ReportDate,
	}
	if messageID != "" {
		fields["message_id"] = messageID
	}
	log.DebugObj(p.Type()+" publisher delivered event", "publisher_delivery", fields)
}

func logFailure(log Logger, p Publisher, evt Event, err error) {
	log.ErrorObj(p.Type()+" publisher send failed", "publisher_error", map[string]any{
		"publisher_id": p.ID(),
		"report_kind":  evt.ReportKind,
		"report_date":  evt.ReportDate,
		"error":        err.Error(),
	})
}
