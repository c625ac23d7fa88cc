package domain

import (
	"fmt"
	"strings"
)

// CardType is the discriminant of the UNO card variant.
type CardType string

const (
	CardNumber       CardType = "number"
	CardSkip         CardType = "skip"
	CardReverse      CardType = "reverse"
	CardDrawTwo      CardType = "draw_two"
	CardWild         CardType = "wild"
	CardWildDrawFour CardType = "wild_draw_four"
)

// Color is a card color. Wild cards carry ColorWild until a color is chosen.
type Color string

const (
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorWild   Color = "wild"
)

// PlayableColors lists the colors a wild card may be declared as.
var PlayableColors = []Color{ColorRed, ColorYellow, ColorGreen, ColorBlue}

// Card is a single UNO card as sent by the server.
type Card struct {
	Type        CardType `json:"type"`
	Color       Color    `json:"color"`
	Value       *int     `json:"value,omitempty"`
	ChosenColor Color    `json:"chosen_color,omitempty"`
}

// NumberCard builds a numbered card.
func NumberCard(color Color, value int) Card {
	return Card{Type: CardNumber, Color: color, Value: &value}
}

// ActionCard builds a colored non-number card (skip, reverse, draw two).
func ActionCard(color Color, t CardType) Card {
	return Card{Type: t, Color: color}
}

// WildCard builds a wild or wild draw four card.
func WildCard(t CardType) Card {
	return Card{Type: t, Color: ColorWild}
}

// IsWild reports whether the card needs a chosen color when played.
func (c Card) IsWild() bool {
	return c.Type == CardWild || c.Type == CardWildDrawFour
}

// WithChosenColor returns a copy of a wild card carrying the declared color.
func (c Card) WithChosenColor(color Color) Card {
	out := c.Clone()
	out.ChosenColor = color
	return out
}

// Clone returns a copy that shares no memory with c.
func (c Card) Clone() Card {
	out := c
	if c.Value != nil {
		v := *c.Value
		out.Value = &v
	}
	return out
}

// EffectiveColor is the chosen color for a played wild card, otherwise the card color.
func (c Card) EffectiveColor() Color {
	if c.IsWild() && c.ChosenColor != "" {
		return c.ChosenColor
	}
	return c.Color
}

// Label returns display text such as "Red 7", "Blue Skip" or "Wild +4".
func (c Card) Label() string {
	color := capitalize(string(c.Color))
	switch c.Type {
	case CardNumber:
		if c.Value == nil {
			return color
		}
		return fmt.Sprintf("%s %d", color, *c.Value)
	case CardSkip:
		return color + " Skip"
	case CardReverse:
		return color + " Reverse"
	case CardDrawTwo:
		return color + " +2"
	case CardWild:
		return "Wild"
	case CardWildDrawFour:
		return "Wild +4"
	}
	return "Card"
}

// Equal compares two cards by type, color and value. The chosen color is ignored.
func (c Card) Equal(other Card) bool {
	if c.Type != other.Type || c.Color != other.Color {
		return false
	}
	if c.Value == nil || other.Value == nil {
		return c.Value == nil && other.Value == nil
	}
	return *c.Value == *other.Value
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// CloneHand copies a hand so callers cannot alias store state.
func CloneHand(hand []Card) []Card {
	if hand == nil {
		return nil
	}
	out := make([]Card, len(hand))
	for i, c := range hand {
		out[i] = c.Clone()
	}
	return out
}
