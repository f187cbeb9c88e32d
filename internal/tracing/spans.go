package tracing

// Span attribute keys.
const (
	AttrAction      = "fieldreg.action"
	AttrSeq         = "fieldreg.seq"
	AttrToken       = "fieldreg.token"
	AttrCaller      = "fieldreg.caller"
	AttrHeight      = "fieldreg.height"
	AttrOutcome     = "fieldreg.outcome"
	AttrCode        = "fieldreg.code"
	AttrEquipmentID = "fieldreg.equipment_id"
	AttrEntries     = "fieldreg.entries"
)

// Span names.
const (
	SpanExecute = "engine.execute"
	SpanReplay  = "engine.replay"
	SpanImport  = "manifest.import"
)
