package tessera

import "time"

// Metadata keys for cuserr.WithMetadata
const (
	MetaKeyKind       = "kind"
	MetaKeyOrigin     = "origin"
	MetaKeyName       = "name"
	MetaKeyTemplate   = "template"
	MetaKeyParser     = "parser"
	MetaKeyAction     = "action"
	MetaKeyParameter  = "parameter"
	MetaKeyTargetType = "target_type"
	MetaKeyValue      = "value"
	MetaKeyFragment   = "fragment"
	MetaKeyLine       = "line"
	MetaKeyPhase      = "phase"
)

// Log message constants
const (
	LogMsgEngineCreated       = "engine created"
	LogMsgEngineStopped       = "engine stopped"
	LogMsgRenderStart         = "render started"
	LogMsgRenderEnd           = "render complete"
	LogMsgRenderFailed        = "render failed"
	LogMsgCacheHit            = "template cache hit"
	LogMsgCacheMiss           = "template cache miss"
	LogMsgTemplateParsed      = "template parsed"
	LogMsgCacheStoreFailed    = "storing template in cache failed"
	LogMsgActionResolved      = "action resolved"
	LogMsgPhaseStart          = "action phase started"
	LogMsgPhaseSkipped        = "action phase skipped by interceptor"
	LogMsgActionAborted       = "action aborted"
	LogMsgWriterClearFailed   = "clearing writer after failure failed"
	LogMsgWriterCloseFailed   = "closing writer failed"
	LogMsgLibraryRegistered   = "library registered"
	LogMsgLibraryDisableError = "disabling library failed"
	LogMsgIncludeStart        = "include started"
	LogMsgEnricherAfterFailed = "enricher after-template hook failed"
	LogMsgSourceChanged       = "template source changed"
	LogMsgSourceWatchError    = "template source watch error"
	LogMsgSourceWatchStopped  = "template source watcher stopped"
	LogMsgSourceCloseFailed   = "closing template source failed"
	LogMsgCacheCloseFailed    = "closing template cache failed"
	LogMsgConfigLoaded        = "config file loaded"
)

// Log field constants
const (
	LogFieldRenderID   = "render_id"
	LogFieldTemplate   = "template"
	LogFieldParser     = "parser"
	LogFieldAction     = "action"
	LogFieldPhase      = "phase"
	LogFieldLibrary    = "library"
	LogFieldDepth      = "depth"
	LogFieldPath       = "path"
	LogFieldOp         = "op"
	LogFieldEvicted    = "evicted"
	LogFieldDuration   = "duration"
	LogFieldNodes      = "nodes"
	LogFieldInterceptN = "interceptors"
	LogFieldWatch      = "watch"
)

// Namespace constants
const (
	// ImplicitPrefix is the reserved namespace of implicit object names.
	// Names passed to the implicit-object API are stored under this prefix
	// so they can never collide with user variables.
	ImplicitPrefix = "tessera:"

	// DefaultScopeName is the name of the scope every context starts with.
	DefaultScopeName = "default"
)

// Default configuration values
const (
	DefaultParserName      = "text"
	DefaultMaxIncludeDepth = 32
	DefaultMetricsNS       = "tessera"
	DefaultWatchDebounce   = 100 * time.Millisecond
)

// Template file extension used by FilesystemSource
const TemplateFileExt = ".tsr"

// Postgres source defaults
const (
	PostgresDefaultTable        = "tessera_templates"
	PostgresDefaultQueryTimeout = 10 * time.Second
	PostgresDriverName          = "postgres"
)
