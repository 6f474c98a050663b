package workflow

import (
	"strings"
)

const workflowComponentName = "workflow"

func (c *Controller) logInfo(operation, correlationID, message string, attrs ...any) {
	base := []any{
		"component", workflowComponentName,
		"operation", strings.TrimSpace(operation),
		"correlation_id", correlationOrNA(correlationID),
	}
	c.logger.Info(message, append(base, attrs...)...)
}

func (c *Controller) logWarn(operation, correlationID, message string, attrs ...any) {
	base := []any{
		"component", workflowComponentName,
		"operation", strings.TrimSpace(operation),
		"correlation_id", correlationOrNA(correlationID),
	}
	c.logger.Warn(message, append(base, attrs...)...)
}

func (c *Controller) recordError(err error, operation, correlationID string, attrs ...any) {
	if err == nil {
		return
	}
	category := ErrorCategory(err)
	c.metrics.RecordError(category)
	base := []any{
		"component", workflowComponentName,
		"operation", strings.TrimSpace(operation),
		"category", category,
		"correlation_id", correlationOrNA(correlationID),
		"error", err.Error(),
	}
	c.logger.Error("workflow error", append(base, attrs...)...)
}

func correlationOrNA(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return "n/a"
}
