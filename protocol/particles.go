package protocol

import "strings"

// Particle ids that carry extra varints after the common fields.
const (
	ParticleIconCrack  = 36
	ParticleBlockCrack = 37
	ParticleBlockDust  = 38
)

var particleIDs = map[string]int32{
	"explode":          0,
	"largeexplode":     1,
	"hugeexplosion":    2,
	"fireworksspark":   3,
	"bubble":           4,
	"splash":           5,
	"wake":             6,
	"suspended":        7,
	"depthsuspend":     8,
	"crit":             9,
	"magiccrit":        10,
	"smoke":            11,
	"largesmoke":       12,
	"spell":            13,
	"instantspell":     14,
	"mobspell":         15,
	"mobspellambient":  16,
	"witchmagic":       17,
	"dripwater":        18,
	"driplava":         19,
	"angryvillager":    20,
	"happyvillager":    21,
	"townaura":         22,
	"note":             23,
	"portal":           24,
	"enchantmenttable": 25,
	"flame":            26,
	"lava":             27,
	"footstep":         28,
	"cloud":            29,
	"reddust":          30,
	"snowballpoof":     31,
	"snowshovel":       32,
	"slime":            33,
	"heart":            34,
	"barrier":          35,
	"iconcrack":        ParticleIconCrack,
	"blockcrack":       ParticleBlockCrack,
	"blockdust":        ParticleBlockDust,
	"droplet":          39,
	"take":             40,
	"mobappearance":    41,
}

// ParticleID looks a particle up by name, ignoring case. ok is false for
// unknown names, which have id 0.
func ParticleID(name string) (id int32, ok bool) {
	id, ok = particleIDs[strings.ToLower(name)]
	return id, ok
}

// particleDataLen is the number of extra varints sent for id.
func particleDataLen(id int32) int {
	switch id {
	case ParticleIconCrack:
		return 2
	case ParticleBlockCrack, ParticleBlockDust:
		return 1
	}

	return 0
}
