package services

const (
	LogActionDocumentProcess = "DOCUMENT_PROCESS"
	LogActionDocumentPersist = "DOCUMENT_PERSIST"
	LogActionDocumentDelete  = "DOCUMENT_DELETE"
	LogActionHistoryExport   = "HISTORY_EXPORT"
	LogOutcomeSuccess        = "SUCCESS"
	LogOutcomeFail           = "FAIL"
)
