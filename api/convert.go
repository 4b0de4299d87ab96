package api

import (
	"fmt"

	"github.com/beka-birhanu/maze-race/maze"
	"github.com/beka-birhanu/maze-race/race"
	"github.com/google/uuid"
	structpb "google.golang.org/protobuf/types/known/structpb"
)

// Message field names.
const (
	fieldClientID    = "clientId"
	fieldSessionID   = "sessionId"
	fieldLevel       = "level"
	fieldDirection   = "direction"
	fieldAccepted    = "accepted"
	fieldOpponentDue = "opponentDue"
	fieldEnded       = "ended"
	fieldState       = "state"
)

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func clientID(s *structpb.Struct) (uuid.UUID, error) {
	raw := stringField(s, fieldClientID)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing %s %q: %w", fieldClientID, raw, err)
	}
	return id, nil
}

func positionValue(p maze.Position) map[string]interface{} {
	return map[string]interface{}{"x": p.X, "y": p.Y}
}

func positionFrom(v *structpb.Value) maze.Position {
	f := v.GetStructValue().GetFields()
	return maze.Position{X: int(f["x"].GetNumberValue()), Y: int(f["y"].GetNumberValue())}
}

// SnapshotMap flattens a snapshot into plain JSON-compatible values.
func SnapshotMap(s race.Snapshot) map[string]interface{} {
	rows := make([]interface{}, len(s.Rows))
	for i, r := range s.Rows {
		rows[i] = r
	}
	m := map[string]interface{}{
		"level":     s.Level.ID,
		"levelName": s.Level.Name,
		"size":      s.Size,
		"rows":      rows,
		"player":    positionValue(s.Player),
		"opponent":  positionValue(s.Opponent),
		"exit":      positionValue(s.Exit),
		"turn":      s.Turn.String(),
		"remaining": s.Remaining,
		"countdown": s.Countdown(),
		"outcome":   s.Outcome.String(),
		"ended":     s.Ended(),
	}
	if s.Ended() {
		m["message"] = s.Outcome.Message()
	}
	return m
}

// SnapshotStruct encodes a snapshot for the wire.
func SnapshotStruct(s race.Snapshot) (*structpb.Struct, error) {
	return structpb.NewStruct(SnapshotMap(s))
}

// SnapshotFromStruct decodes what SnapshotStruct produced.
func SnapshotFromStruct(st *structpb.Struct) race.Snapshot {
	f := st.GetFields()

	level, ok := race.LevelByID(f["level"].GetStringValue())
	if !ok {
		level = race.Level{
			ID:   f["level"].GetStringValue(),
			Name: f["levelName"].GetStringValue(),
			Size: int(f["size"].GetNumberValue()),
		}
	}

	var rows []string
	for _, v := range f["rows"].GetListValue().GetValues() {
		rows = append(rows, v.GetStringValue())
	}

	turn := race.TurnPlayer
	if f["turn"].GetStringValue() == race.TurnOpponent.String() {
		turn = race.TurnOpponent
	}

	return race.Snapshot{
		Level:     level,
		Size:      int(f["size"].GetNumberValue()),
		Rows:      rows,
		Player:    positionFrom(f["player"]),
		Opponent:  positionFrom(f["opponent"]),
		Exit:      positionFrom(f["exit"]),
		Turn:      turn,
		Remaining: int(f["remaining"].GetNumberValue()),
		Outcome:   outcomeFrom(f["outcome"].GetStringValue()),
	}
}

func outcomeFrom(name string) race.Outcome {
	for _, o := range []race.Outcome{race.OutcomePlayerWin, race.OutcomeOpponentWin, race.OutcomeTimeout} {
		if o.String() == name {
			return o
		}
	}
	return race.OutcomeNone
}
