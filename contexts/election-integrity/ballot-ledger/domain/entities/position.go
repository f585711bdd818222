package entities

import (
	"fmt"
	"strings"

	domainerrors "ballotbox/contexts/election-integrity/ballot-ledger/domain/errors"
)

// Position is a contested office. The zero value is not a valid office.
type Position uint8

const (
	PositionPresident Position = iota + 1
	PositionVicePresident
	PositionGovernor
	PositionViceGovernor
	PositionSenator
	PositionFederalDeputy
	PositionStateDeputy
	PositionMayor
	PositionViceMayor
	PositionCouncilor
	PositionMinister
	PositionSecretary
)

type positionNames struct {
	label string
	key   string
}

var positionTable = map[Position]positionNames{
	PositionPresident:     {label: "Presidente", key: "President"},
	PositionVicePresident: {label: "Vice-Presidente", key: "VicePresident"},
	PositionGovernor:      {label: "Governador", key: "Governor"},
	PositionViceGovernor:  {label: "Vice-Governador", key: "ViceGovernor"},
	PositionSenator:       {label: "Senador", key: "Senator"},
	PositionFederalDeputy: {label: "Deputado Federal", key: "FederalDeputy"},
	PositionStateDeputy:   {label: "Deputado Estadual", key: "StateDeputy"},
	PositionMayor:         {label: "Prefeito", key: "Mayor"},
	PositionViceMayor:     {label: "Vice-Prefeito", key: "ViceMayor"},
	PositionCouncilor:     {label: "Vereador", key: "Councilor"},
	PositionMinister:      {label: "Ministro", key: "Minister"},
	PositionSecretary:     {label: "Secretário", key: "Secretary"},
}

var (
	positionsByLabel = make(map[string]Position, len(positionTable))
	positionsByKey   = make(map[string]Position, len(positionTable))
)

func init() {
	for position, names := range positionTable {
		positionsByLabel[names.label] = position
		positionsByKey[strings.ToLower(names.key)] = position
	}
}

// Positions returns every office in declaration order.
func Positions() []Position {
	items := make([]Position, 0, len(positionTable))
	for position := PositionPresident; position <= PositionSecretary; position++ {
		items = append(items, position)
	}
	return items
}

// ParsePosition maps an external label ("Presidente") or identifier
// ("President") to its office. Unrecognized input is an error.
func ParsePosition(raw string) (Position, error) {
	value := strings.TrimSpace(raw)
	if position, ok := positionsByLabel[value]; ok {
		return position, nil
	}
	if position, ok := positionsByKey[strings.ToLower(value)]; ok {
		return position, nil
	}
	return 0, fmt.Errorf("%w: %q", domainerrors.ErrUnknownPosition, raw)
}

func (p Position) IsValid() bool {
	_, ok := positionTable[p]
	return ok
}

// String returns the human readable label used in storage and on the wire.
func (p Position) String() string {
	if names, ok := positionTable[p]; ok {
		return names.label
	}
	return fmt.Sprintf("Position(%d)", uint8(p))
}

func (p Position) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: %d", domainerrors.ErrUnknownPosition, uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Position) UnmarshalText(text []byte) error {
	position, err := ParsePosition(string(text))
	if err != nil {
		return err
	}
	*p = position
	return nil
}
