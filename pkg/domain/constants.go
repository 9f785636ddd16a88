package domain

// Metadata labels shared by the analysis steps and the renderers.
const (
	MetaDeclaredIn     = "Declared in"
	MetaLength         = "Length"
	MetaCount          = "Count"
	MetaEncoding       = "Encoding"
	MetaMimetype       = "Mimetype"
	MetaTimestamp      = "Timestamp"
	MetaAnalysedBefore = "Analysed before"
	MetaHint           = "Hint"
	MetaSignature      = "Signature"
	MetaReceiver       = "Receiver"
	MetaSource         = "Source"
	MetaReason         = "Reason"
	MetaReference      = "Reference"
	MetaRedacted       = "Redacted"
	MetaCalledFrom     = "Called from"
)

// Analysis steps. Event handlers are registered under
// EventName(step, MarkerStart) or EventName(step, MarkerEnd).
const (
	StepScalar      = "scalar"
	StepCollection  = "collection"
	StepPublic      = "objects.public"
	StepError       = "objects.error"
	StepGetter      = "objects.getter"
	StepProtected   = "objects.protected"
	StepPrivate     = "objects.private"
	StepMeta        = "objects.meta"
	StepConstants   = "objects.constants"
	StepMethods     = "objects.methods"
	StepTraversable = "objects.traversable"
	StepDebug       = "objects.debug"
)
