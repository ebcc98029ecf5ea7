package notify

import "github.com/sirupsen/logrus"

// Logrus returns a Handler that writes each notification to logger.
func Logrus(logger logrus.FieldLogger) Handler {
	return func(n Notification) {
		fields := logrus.Fields{"kind": n.Kind.String()}
		if n.Handle != 0 {
			fields["handle"] = n.Handle
		}
		if n.Offset >= 0 {
			fields["offset"] = n.Offset
		}
		entry := logger.WithFields(fields)
		if n.Err != nil {
			entry = entry.WithError(n.Err)
		}
		switch n.Severity {
		case SeverityError:
			entry.Error(n.Message)
		case SeverityWarning:
			entry.Warn(n.Message)
		default:
			entry.Info(n.Message)
		}
	}
}
