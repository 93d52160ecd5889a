package board

import "github.com/google/uuid"

// cardDef is a static house card definition.
type cardDef struct {
	id        string
	name      string
	strength  int
	swords    int
	towers    int
	abilityID string
}

// Static house card sets. Like the unit and order tables these are
// read-only content shared by every game.
var houseCardDefs = map[string][]cardDef{
	"lannister": {
		{"tywin-lannister", "Tywin Lannister", 10, 0, 0, "tywin-lannister"},
		{"ser-jaime-lannister", "Ser Jaime Lannister", 9, 1, 0, ""},
		{"the-hound", "The Hound", 8, 0, 0, ""},
		{"mace-tyrell", "Mace Tyrell", 7, 0, 0, "mace-tyrell"},
		{"cersei-lannister", "Cersei Lannister", 4, 0, 1, ""},
		{"ser-gregor-clegane", "Ser Gregor Clegane", 3, 3, 0, ""},
		{"the-blackfish", "The Blackfish", 0, 0, 0, "the-blackfish"},
	},
	"stark": {
		{"eddard-stark", "Eddard Stark", 10, 2, 0, ""},
		{"robb-stark", "Robb Stark", 9, 0, 0, ""},
		{"greatjon-umber", "Greatjon Umber", 8, 1, 0, ""},
		{"roose-bolton", "Roose Bolton", 7, 0, 0, ""},
		{"nymeria-sand", "Nymeria Sand", 4, 0, 0, "nymeria-sand"},
		{"arianne-martell", "Arianne Martell", 3, 0, 1, "arianne-martell"},
		{"asha-greyjoy", "Asha Greyjoy", 1, 0, 0, "asha-greyjoy"},
	},
	"baratheon": {
		{"stannis-baratheon", "Stannis Baratheon", 10, 0, 0, "stannis-baratheon"},
		{"renly-baratheon", "Renly Baratheon", 9, 0, 0, "renly-baratheon"},
		{"stannis-baratheon-dwd", "Stannis Baratheon (DwD)", 8, 1, 0, "stannis-baratheon-dwd"},
		{"balon-greyjoy", "Balon Greyjoy", 7, 0, 0, "balon-greyjoy"},
		{"theon-greyjoy", "Theon Greyjoy", 4, 0, 0, "theon-greyjoy"},
		{"ser-davos-seaworth", "Ser Davos Seaworth", 3, 0, 1, ""},
		{"patchface", "Patchface", 0, 0, 0, ""},
	},
}

type regionDef struct {
	id          string
	name        string
	castleLevel int
	garrison    int
}

var regionDefs = []regionDef{
	{"kings-landing", "King's Landing", 2, 0},
	{"lannisport", "Lannisport", 2, 2},
	{"winterfell", "Winterfell", 2, 0},
	{"riverrun", "Riverrun", 1, 0},
	{"dragonstone", "Dragonstone", 2, 0},
	{"storms-end", "Storm's End", 1, 0},
	{"the-reach", "The Reach", 0, 0},
	{"harrenhal", "Harrenhal", 1, 4},
	{"blackwater", "Blackwater", 0, 0},
	{"the-twins", "The Twins", 0, 0},
}

var adjacencyDefs = [][2]string{
	{"kings-landing", "blackwater"},
	{"kings-landing", "the-reach"},
	{"kings-landing", "storms-end"},
	{"kings-landing", "harrenhal"},
	{"blackwater", "riverrun"},
	{"blackwater", "harrenhal"},
	{"riverrun", "lannisport"},
	{"riverrun", "the-twins"},
	{"riverrun", "harrenhal"},
	{"the-twins", "winterfell"},
	{"the-reach", "lannisport"},
	{"the-reach", "storms-end"},
	{"storms-end", "dragonstone"},
	{"harrenhal", "the-twins"},
}

type unitPlacement struct {
	regionID string
	typeID   string
	count    int
}

var startingUnits = map[string][]unitPlacement{
	"lannister": {
		{"lannisport", "footman", 2},
		{"lannisport", "knight", 1},
		{"the-reach", "footman", 1},
	},
	"stark": {
		{"winterfell", "footman", 2},
		{"winterfell", "knight", 1},
		{"the-twins", "footman", 1},
	},
	"baratheon": {
		{"dragonstone", "footman", 2},
		{"dragonstone", "knight", 1},
		{"storms-end", "footman", 1},
	},
}

// DefaultSetup builds the standard three-house game. Unit ids are fresh
// uuids; everything else comes from the static tables above.
func DefaultSetup() *Game {
	world := NewWorld()
	for _, rd := range regionDefs {
		world.AddRegion(NewRegion(rd.id, rd.name, rd.castleLevel, rd.garrison))
	}
	for _, pair := range adjacencyDefs {
		world.Connect(pair[0], pair[1])
	}

	game := NewGame(world)
	for _, houseID := range []string{"lannister", "stark", "baratheon"} {
		h := &House{ID: houseID, Name: houseID, PowerTokens: 5}
		for _, cd := range houseCardDefs[houseID] {
			h.HouseCards = append(h.HouseCards, &HouseCard{
				ID:         cd.id,
				Name:       cd.name,
				Strength:   cd.strength,
				SwordIcons: cd.swords,
				TowerIcons: cd.towers,
				State:      HouseCardAvailable,
				AbilityID:  cd.abilityID,
			})
		}
		game.AddHouse(h)

		for _, up := range startingUnits[houseID] {
			region := world.Region(up.regionID)
			for i := 0; i < up.count; i++ {
				region.AddUnit(&Unit{
					ID:         uuid.New().String(),
					Type:       UnitTypes[up.typeID],
					Allegiance: h,
				})
			}
		}
	}

	game.IronThroneTrack = []*House{game.House("baratheon"), game.House("lannister"), game.House("stark")}
	game.FiefdomsTrack = []*House{game.House("stark"), game.House("baratheon"), game.House("lannister")}
	game.KingsCourtTrack = []*House{game.House("lannister"), game.House("stark"), game.House("baratheon")}

	return game
}
