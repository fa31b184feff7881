package network

// Inbound intents
const (
	MsgTypeHeartbeat          = 1
	MsgTypeLogin              = 2
	MsgTypeJoinRoom           = 101
	MsgTypeLeaveRoom          = 102
	MsgTypeCreateRoom         = 103
	MsgTypeUpdateRolePool     = 104
	MsgTypeGetRoles           = 105
	MsgTypeGetStats           = 106
	MsgTypeUpdateRoomSettings = 107
	MsgTypeStartGame          = 201
	MsgTypeSelectRole         = 202
	MsgTypeConfirmTeam        = 203
	MsgTypeRevealRole         = 204
	MsgTypeConcealRole        = 205
	MsgTypeEndGame            = 206
	MsgTypeChosenOneDecision  = 207
	MsgTypeCultification      = 208
)

// Outbound events
const (
	MsgTypeRoomCreated         = 301
	MsgTypeJoinedRoom          = 302
	MsgTypeUserJoinedRoom      = 303
	MsgTypeUserLeftRoom        = 304
	MsgTypeLeftRoom            = 305
	MsgTypeRolesPoolUpdated    = 306
	MsgTypeSelectRoleOptions   = 307
	MsgTypeReviewTeam          = 308
	MsgTypeGameUpdated         = 309
	MsgTypeGameStarted         = 310
	MsgTypeGameEnded           = 311
	MsgTypeReconnectedToRoom   = 312
	MsgTypeLoggedIn            = 313
	MsgTypeRolesData           = 314
	MsgTypeStatsData           = 315
	MsgTypeUserDisconnected    = 316
	MsgTypeRoomSettingsUpdated = 317
	MsgTypeError               = 399
)
