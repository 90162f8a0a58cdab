package envelope

import (
	"crypto/rand"
	"strings"
)

const safeWordCount = 3

// GenerateSafeWord derives a short speakable token from the fixed wordlist,
// e.g. "maple-otter-cloud". At 3 words over 256 entries it carries about 24
// bits of entropy: enough for a verbal identity check over a phone call, not
// a secret.
func GenerateSafeWord() (string, error) {
	buf := make([]byte, safeWordCount)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	words := make([]string, safeWordCount)
	for i, b := range buf {
		words[i] = wordlist[b]
	}
	return strings.Join(words, "-"), nil
}

// wordlist holds 256 short, phonetically distinct, easy-to-spell words.
// Changing this list breaks nothing cryptographically but changes what
// existing users hear, so treat it as append-never/replace-never.
var wordlist = [256]string{
	"acorn", "alder", "amber", "anchor", "apple", "apron", "arrow", "aspen",
	"autumn", "badge", "bagel", "bamboo", "banjo", "barley", "basil", "beach",
	"beacon", "berry", "birch", "bison", "blanket", "bloom", "bluff", "bonfire",
	"breeze", "brick", "bridge", "brook", "bucket", "butter", "cabin", "cactus",
	"camel", "candle", "canoe", "canyon", "carrot", "cedar", "cello", "chalk",
	"cherry", "chimney", "cinnamon", "citrus", "clay", "cliff", "clover", "cloud",
	"cobalt", "cocoa", "comet", "compass", "copper", "coral", "cotton", "cove",
	"cradle", "crane", "cricket", "crystal", "cumin", "daisy", "dawn", "delta",
	"denim", "dew", "dime", "dolphin", "dome", "donkey", "dory", "dove",
	"dune", "eagle", "earth", "echo", "ember", "fable", "falcon", "fawn",
	"feather", "fennel", "fern", "ferry", "fiddle", "fig", "finch", "fjord",
	"flint", "flute", "fog", "forest", "fountain", "fox", "frost", "garden",
	"garnet", "gazebo", "gecko", "ginger", "glacier", "glade", "goose", "gourd",
	"granite", "grape", "grove", "gull", "harbor", "harvest", "hawk", "hazel",
	"heron", "hickory", "hilltop", "honey", "horizon", "husk", "iceberg", "igloo",
	"indigo", "iris", "island", "ivory", "ivy", "jade", "jasmine", "jasper",
	"juniper", "kayak", "kelp", "kettle", "kiwi", "lagoon", "lantern", "larch",
	"lark", "lava", "lavender", "ledge", "lemon", "lentil", "lilac", "lily",
	"linen", "lotus", "lunar", "lynx", "magnet", "mango", "mantis", "maple",
	"marble", "marigold", "marsh", "meadow", "melon", "mesa", "mint", "mirror",
	"mist", "mole", "moss", "moth", "mountain", "mulberry", "mural", "mustard",
	"nectar", "nest", "nickel", "nimbus", "north", "nutmeg", "oak", "oasis",
	"ocean", "olive", "onyx", "opal", "orchard", "orchid", "osprey", "otter",
	"owl", "oyster", "palm", "pansy", "paprika", "parsley", "peach", "pearl",
	"pebble", "pecan", "pelican", "penguin", "peony", "pepper", "petal", "pine",
	"pistachio", "plum", "pollen", "pond", "poplar", "poppy", "prairie", "prism",
	"pumpkin", "quail", "quartz", "quill", "quilt", "raven", "reed", "ridge",
	"river", "robin", "rosemary", "rowan", "ruby", "rye", "saffron", "sage",
	"salmon", "sandal", "sapphire", "seal", "sequoia", "shell", "silver", "sleet",
	"slope", "sorrel", "sparrow", "spruce", "squash", "stone", "stork", "summit",
	"sunflower", "swan", "tansy", "teal", "thistle", "thyme", "tiger", "timber",
	"trout", "tulip", "tundra", "turnip", "valley", "velvet", "violet", "willow",
}
