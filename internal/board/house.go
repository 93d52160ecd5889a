package board

// House is a playable faction. Houses are created once at game setup and
// persist for the whole game.
type House struct {
	ID          string
	Name        string
	PowerTokens int
	HouseCards  []*HouseCard
}

// HouseCard returns the card with the given id, or nil.
func (h *House) HouseCard(id string) *HouseCard {
	for _, hc := range h.HouseCards {
		if hc.ID == id {
			return hc
		}
	}
	return nil
}

// CardsInState returns the house's cards currently in the given state.
func (h *House) CardsInState(state HouseCardState) []*HouseCard {
	var cards []*HouseCard
	for _, hc := range h.HouseCards {
		if hc.State == state {
			cards = append(cards, hc)
		}
	}
	return cards
}
