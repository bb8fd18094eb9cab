package protocol

// Serverbound packet types, per state.
const (
	HandshakeID uint32 = 0x00

	StatusRequestID uint32 = 0x00
	StatusPingID    uint32 = 0x01

	LoginStartID         uint32 = 0x00
	EncryptionResponseID uint32 = 0x01

	KeepAliveID               uint32 = 0x00
	ChatMessageID             uint32 = 0x01
	UseEntityID               uint32 = 0x02
	PlayerID                  uint32 = 0x03
	PlayerPositionID          uint32 = 0x04
	PlayerLookID              uint32 = 0x05
	PlayerPositionLookID      uint32 = 0x06
	BlockDigID                uint32 = 0x07
	BlockPlaceID              uint32 = 0x08
	SlotSelectID              uint32 = 0x09
	AnimationID               uint32 = 0x0a
	EntityActionID            uint32 = 0x0b
	SteerVehicleID            uint32 = 0x0c
	WindowCloseID             uint32 = 0x0d
	WindowClickID             uint32 = 0x0e
	ConfirmTransactionID      uint32 = 0x0f
	CreativeInventoryActionID uint32 = 0x10
	EnchantItemID             uint32 = 0x11
	UpdateSignID              uint32 = 0x12
	PlayerAbilitiesID         uint32 = 0x13
	TabCompleteID             uint32 = 0x14
	ClientSettingsID          uint32 = 0x15
	ClientStatusID            uint32 = 0x16
	PluginMessageID           uint32 = 0x17
)

// Clientbound packet types.
const (
	outStatusResponse = 0x00
	outStatusPong     = 0x01

	outLoginDisconnect     = 0x00
	outEncryptionRequest   = 0x01
	outLoginSuccess        = 0x02
	outLoginSetCompression = 0x03

	outKeepAlive           = 0x00
	outJoinGame            = 0x01
	outChat                = 0x02
	outTimeUpdate          = 0x03
	outEntityEquipment     = 0x04
	outSpawnPosition       = 0x05
	outUpdateHealth        = 0x06
	outRespawn             = 0x07
	outPlayerPositionLook  = 0x08
	outUseBed              = 0x0a
	outAnimation           = 0x0b
	outSpawnPlayer         = 0x0c
	outCollectItem         = 0x0d
	outSpawnObject         = 0x0e
	outSpawnMob            = 0x0f
	outSpawnPainting       = 0x10
	outSpawnExperienceOrb  = 0x11
	outEntityVelocity      = 0x12
	outDestroyEntities     = 0x13
	outEntityRelativeMove  = 0x15
	outEntityLook          = 0x16
	outEntityLookMove      = 0x17
	outEntityTeleport      = 0x18
	outEntityHeadLook      = 0x19
	outEntityStatus        = 0x1a
	outAttachEntity        = 0x1b
	outEntityMetadata      = 0x1c
	outEntityEffect        = 0x1d
	outRemoveEntityEffect  = 0x1e
	outSetExperience       = 0x1f
	outEntityProperties    = 0x20
	outChunkData           = 0x21
	outMultiBlockChange    = 0x22
	outBlockChange         = 0x23
	outBlockAction         = 0x24
	outBlockBreakAnimation = 0x25
	outExplosion           = 0x27
	outEffect              = 0x28
	outSoundEffect         = 0x29
	outParticle            = 0x2a
	outChangeGameState     = 0x2b
	outSpawnGlobalEntity   = 0x2c
	outOpenWindow          = 0x2d
	outCloseWindow         = 0x2e
	outSetSlot             = 0x2f
	outWindowItems         = 0x30
	outWindowProperty      = 0x31
	outUpdateSign          = 0x33
	outMaps                = 0x34
	outUpdateBlockEntity   = 0x35
	outOpenSignEditor      = 0x36
	outStatistics          = 0x37
	outPlayerListItem      = 0x38
	outPlayerAbilities     = 0x39
	outTabComplete         = 0x3a
	outScoreboardObjective = 0x3b
	outUpdateScore         = 0x3c
	outDisplayScoreboard   = 0x3d
	outPluginMessage       = 0x3f
	outDisconnect          = 0x40
	outServerDifficulty    = 0x41
)
