package entity

// MobType is the mob id used by spawn packets.
type MobType uint8

const (
	MobCreeper      MobType = 50
	MobSkeleton     MobType = 51
	MobSpider       MobType = 52
	MobGiant        MobType = 53
	MobZombie       MobType = 54
	MobSlime        MobType = 55
	MobGhast        MobType = 56
	MobZombiePigman MobType = 57
	MobEnderman     MobType = 58
	MobCaveSpider   MobType = 59
	MobSilverfish   MobType = 60
	MobBlaze        MobType = 61
	MobMagmaCube    MobType = 62
	MobEnderDragon  MobType = 63
	MobWither       MobType = 64
	MobBat          MobType = 65
	MobWitch        MobType = 66
	MobEndermite    MobType = 67
	MobGuardian     MobType = 68
	MobPig          MobType = 90
	MobSheep        MobType = 91
	MobCow          MobType = 92
	MobChicken      MobType = 93
	MobSquid        MobType = 94
	MobWolf         MobType = 95
	MobMooshroom    MobType = 96
	MobSnowGolem    MobType = 97
	MobOcelot       MobType = 98
	MobIronGolem    MobType = 99
	MobHorse        MobType = 100
	MobRabbit       MobType = 101
	MobVillager     MobType = 120
)

var vanillaNames = map[MobType]string{
	MobBat:          "Bat",
	MobBlaze:        "Blaze",
	MobCaveSpider:   "CaveSpider",
	MobChicken:      "Chicken",
	MobCow:          "Cow",
	MobCreeper:      "Creeper",
	MobEnderDragon:  "EnderDragon",
	MobEnderman:     "Enderman",
	MobEndermite:    "Endermite",
	MobGhast:        "Ghast",
	MobGiant:        "Giant",
	MobGuardian:     "Guardian",
	MobHorse:        "EntityHorse",
	MobIronGolem:    "VillagerGolem",
	MobMagmaCube:    "LavaSlime",
	MobMooshroom:    "MushroomCow",
	MobOcelot:       "Ozelot",
	MobPig:          "Pig",
	MobRabbit:       "Rabbit",
	MobSheep:        "Sheep",
	MobSilverfish:   "Silverfish",
	MobSkeleton:     "Skeleton",
	MobSlime:        "Slime",
	MobSnowGolem:    "SnowMan",
	MobSpider:       "Spider",
	MobSquid:        "Squid",
	MobVillager:     "Villager",
	MobWitch:        "Witch",
	MobWither:       "WitherBoss",
	MobWolf:         "Wolf",
	MobZombie:       "Zombie",
	MobZombiePigman: "PigZombie",
}

// VanillaName returns the entity id used in mob spawner tag trees, or ""
// for unknown types.
func (t MobType) VanillaName() string {
	return vanillaNames[t]
}

// Mob is implemented by every mob variant.
type Mob interface {
	Kind
	MobType() MobType
}

// GenericMob is any mob without type specific metadata.
type GenericMob struct {
	Type MobType
}

func (m GenericMob) MobType() MobType                 { return m.Type }
func (GenericMob) metadata(*Entity) []MetadataEntry { return nil }

type Bat struct {
	Hanging bool
}

func (Bat) MobType() MobType { return MobBat }

func (m Bat) metadata(*Entity) []MetadataEntry {
	return []MetadataEntry{ByteEntry(16, boolByte(m.Hanging))}
}

type Creeper struct {
	Blowing bool
	Charged bool
}

func (Creeper) MobType() MobType { return MobCreeper }

func (m Creeper) metadata(*Entity) []MetadataEntry {
	// -1 is idle
	state := uint8(0xff)
	if m.Blowing {
		state = 1
	}

	return []MetadataEntry{
		ByteEntry(16, state),
		ByteEntry(17, boolByte(m.Charged)),
	}
}

type Enderman struct {
	CarriedBlock uint8
	CarriedMeta  uint8
	Screaming    bool
}

func (Enderman) MobType() MobType { return MobEnderman }

func (m Enderman) metadata(*Entity) []MetadataEntry {
	return []MetadataEntry{
		ShortEntry(16, int16(m.CarriedBlock)),
		ByteEntry(17, m.CarriedMeta),
		ByteEntry(18, boolByte(m.Screaming)),
	}
}

type Ghast struct {
	Charging bool
}

func (Ghast) MobType() MobType { return MobGhast }

func (m Ghast) metadata(*Entity) []MetadataEntry {
	return []MetadataEntry{ByteEntry(16, boolByte(m.Charging))}
}

type Horse struct {
	Tame, Saddled, Chested, Baby bool
	Eating, Rearing, MouthOpen   bool

	HorseType uint8
	Color     int32
	Style     int32
	Armour    int32
}

func (Horse) MobType() MobType { return MobHorse }

func (m Horse) metadata(*Entity) []MetadataEntry {
	var flags int32

	for bit, set := range map[int32]bool{
		0x02: m.Tame,
		0x04: m.Saddled,
		0x08: m.Chested,
		0x10: m.Baby,
		0x20: m.Eating,
		0x40: m.Rearing,
		0x80: m.MouthOpen,
	} {
		if set {
			flags |= bit
		}
	}

	return []MetadataEntry{
		IntEntry(16, flags),
		ByteEntry(19, m.HorseType),
		IntEntry(20, m.Color|m.Style<<8),
		IntEntry(22, m.Armour),
	}
}

type MagmaCube struct {
	Size uint8
}

func (MagmaCube) MobType() MobType { return MobMagmaCube }

func (m MagmaCube) metadata(*Entity) []MetadataEntry {
	return []MetadataEntry{ByteEntry(16, m.Size)}
}

type Pig struct {
	Saddled bool
}

func (Pig) MobType() MobType { return MobPig }

func (m Pig) metadata(*Entity) []MetadataEntry {
	return []MetadataEntry{ByteEntry(16, boolByte(m.Saddled))}
}

type Sheep struct {
	Color   uint8
	Sheared bool
}

func (Sheep) MobType() MobType { return MobSheep }

func (m Sheep) metadata(*Entity) []MetadataEntry {
	v := m.Color & 0x0f
	if m.Sheared {
		v |= 0x10
	}

	return []MetadataEntry{ByteEntry(16, v)}
}

type Skeleton struct {
	Wither bool
}

func (Skeleton) MobType() MobType { return MobSkeleton }

func (m Skeleton) metadata(*Entity) []MetadataEntry {
	return []MetadataEntry{ByteEntry(13, boolByte(m.Wither))}
}

type Slime struct {
	Size uint8
}

func (Slime) MobType() MobType { return MobSlime }

func (m Slime) metadata(*Entity) []MetadataEntry {
	return []MetadataEntry{ByteEntry(16, m.Size)}
}

type Villager struct {
	Profession int32
}

func (Villager) MobType() MobType { return MobVillager }

func (m Villager) metadata(*Entity) []MetadataEntry {
	return []MetadataEntry{IntEntry(16, m.Profession)}
}

type Witch struct {
	Angry bool
}

func (Witch) MobType() MobType { return MobWitch }

func (m Witch) metadata(*Entity) []MetadataEntry {
	return []MetadataEntry{ByteEntry(21, boolByte(m.Angry))}
}

type Wither struct {
	InvulnerableTicks int32
}

func (Wither) MobType() MobType { return MobWither }

func (m Wither) metadata(e *Entity) []MetadataEntry {
	return []MetadataEntry{
		IntEntry(20, m.InvulnerableTicks),
		FloatEntry(6, e.Health),
	}
}

type Wolf struct {
	Sitting, Angry, Tame, Begging bool
	CollarColor                   uint8
}

func (Wolf) MobType() MobType { return MobWolf }

func (m Wolf) metadata(e *Entity) []MetadataEntry {
	var status uint8
	if m.Sitting {
		status |= 0x1
	}

	if m.Angry {
		status |= 0x2
	}

	if m.Tame {
		status |= 0x4
	}

	return []MetadataEntry{
		ByteEntry(16, status),
		FloatEntry(18, e.Health),
		ByteEntry(19, boolByte(m.Begging)),
		ByteEntry(20, m.CollarColor),
	}
}

type Zombie struct {
	Baby       bool
	Villager   bool
	Converting bool
}

func (Zombie) MobType() MobType { return MobZombie }

func (m Zombie) metadata(*Entity) []MetadataEntry {
	return []MetadataEntry{
		ByteEntry(12, boolByte(m.Baby)),
		ByteEntry(13, boolByte(m.Villager)),
		ByteEntry(14, boolByte(m.Converting)),
	}
}
