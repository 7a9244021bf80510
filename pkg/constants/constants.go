package constants

import "time"

const (
	RequestIDLength = 16

	// DefaultPageSize is the number of records a store returns for one query
	// when the query does not set a results limit.
	DefaultPageSize = 100

	DefaultHTTPTimeout = 10 * time.Second
	DefaultWSTimeout   = 30 * time.Second

	// CloseMessageCode is the WebSocket close code sent on a client-initiated close.
	CloseMessageCode = 1000
)

var (
	WebsocketScheme       = "ws"
	WebsocketSecureScheme = "wss"
	HTTPScheme            = "http"
	HTTPSecureScheme      = "https"
)

// Store error codes carried by connection.RPCError.
//
// Only CodeUnknownItem and CodeServerRecordChanged are interpreted by the
// sharednotes core; every other code is passed through to the caller as is.
const (
	CodeInternalError       = 1
	CodeNetworkFailure      = 3
	CodeBadRequest          = 5
	CodeNotAuthenticated    = 9
	CodePermissionFailure   = 10
	CodeUnknownItem         = 11
	CodeInvalidArguments    = 12
	CodeServerRecordChanged = 14
	CodeZoneNotFound        = 26
	CodeQuotaExceeded       = 25
	CodeRequestRateLimited  = 7
	CodeParseError          = -32700
	CodeMethodNotFound      = -32601
	CodeInvalidParams       = -32602
)
