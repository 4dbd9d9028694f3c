package record

import (
	"fmt"
	"strings"
)

// ResolveQueueURL derives a queue URL from a source identifier of the form
// service:region:accountId:queueName, e.g.
// sqs:eu-west-1:123456789012:audit-log-queue ->
// https://sqs.eu-west-1.amazonaws.com/123456789012/audit-log-queue.
// A leading arn:aws: prefix is tolerated.
func ResolveQueueURL(source string) (string, error) {
	trimmed := strings.TrimPrefix(source, "arn:aws:")
	parts := strings.Split(trimmed, ":")
	if len(parts) != 4 {
		return "", fmt.Errorf("malformed queue source %q: want service:region:accountId:queueName", source)
	}
	for i, p := range parts {
		if p == "" {
			return "", fmt.Errorf("malformed queue source %q: empty segment at position %d", source, i)
		}
	}
	return fmt.Sprintf("https://%s.%s.amazonaws.com/%s/%s", parts[0], parts[1], parts[2], parts[3]), nil
}
