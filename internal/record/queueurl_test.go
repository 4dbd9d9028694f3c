package record

import "testing"

func TestResolveQueueURL(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		want    string
		wantErr bool
	}{
		{
			name:   "plain identifier",
			source: "sqs:eu-west-1:123456789012:audit-log-queue",
			want:   "https://sqs.eu-west-1.amazonaws.com/123456789012/audit-log-queue",
		},
		{
			name:   "arn prefix tolerated",
			source: "arn:aws:sqs:us-east-1:999999999999:events",
			want:   "https://sqs.us-east-1.amazonaws.com/999999999999/events",
		},
		{
			name:    "too few segments",
			source:  "sqs:eu-west-1:queue",
			wantErr: true,
		},
		{
			name:    "empty segment",
			source:  "sqs::123456789012:queue",
			wantErr: true,
		},
		{
			name:    "empty source",
			source:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveQueueURL(tt.source)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got %q", tt.source, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
