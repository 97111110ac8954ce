package purge

import "strings"

// ValueKind describes how an alias stores its value.
type ValueKind int

const (
	// Text is a JSON string compared for equality.
	Text ValueKind = iota
	// EpochMillis is a JSON number of milliseconds since the epoch.
	EpochMillis
	// ISOText is a JSON string holding an ISO-8601 timestamp.
	ISOText
	// Native is a timestamptz column.
	Native
)

// Field is one alias: a column plus an optional JSON path inside it.
type Field struct {
	Column string
	Path   []string
	Kind   ValueKind
}

func (f Field) String() string {
	if len(f.Path) == 0 {
		return f.Column
	}
	return f.Column + "." + strings.Join(f.Path, ".")
}

// Collection describes one log table and where its correlation ids and
// timestamps may live. Records produced by older writers use older aliases,
// so every alias is consulted.
type Collection struct {
	Name        string
	Table       string
	Correlation []Field
	Timestamps  []Field
}

// ActionPurge is the audit action recorded for every purge. The audit trail
// is not one of Collections, so purges never delete their own records.
const ActionPurge = "logs.purge"

func jsonText(column string, path ...string) Field {
	return Field{Column: column, Path: path, Kind: Text}
}

// Collections is processed in order by every purge.
var Collections = []Collection{
	{
		Name:  "requestLogs",
		Table: "request_logs",
		Correlation: []Field{
			jsonText("doc", "rid"),
			jsonText("doc", "requestId"),
			jsonText("doc", "meta", "rid"),
		},
		Timestamps: []Field{
			{Column: "doc", Path: []string{"ts"}, Kind: EpochMillis},
			{Column: "doc", Path: []string{"createdAt"}, Kind: ISOText},
			{Column: "doc", Path: []string{"meta", "timestamp"}, Kind: EpochMillis},
		},
	},
	{
		Name:  "clientErrors",
		Table: "client_error_logs",
		Correlation: []Field{
			jsonText("doc", "rid"),
			jsonText("doc", "context", "requestId"),
			jsonText("doc", "correlation_id"),
		},
		Timestamps: []Field{
			{Column: "doc", Path: []string{"timestamp"}, Kind: ISOText},
			{Column: "doc", Path: []string{"context", "ts"}, Kind: EpochMillis},
		},
	},
	{
		Name:  "jobLogs",
		Table: "job_logs",
		Correlation: []Field{
			{Column: "rid", Kind: Text},
			jsonText("payload", "requestId"),
			jsonText("payload", "trace", "rid"),
		},
		Timestamps: []Field{
			{Column: "created_at", Kind: Native},
			{Column: "payload", Path: []string{"finishedAt"}, Kind: ISOText},
			{Column: "payload", Path: []string{"trace", "ts"}, Kind: EpochMillis},
		},
	},
}
