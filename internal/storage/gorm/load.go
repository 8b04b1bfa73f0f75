package gormstorage

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/abporter521/CS3500-TankWars/internal/model"
	"github.com/abporter521/CS3500-TankWars/internal/model/convert"
	v1 "github.com/abporter521/CS3500-TankWars/internal/storage/memory/export/v1"
)

// LoadMatch reads a recorded match and all of its events back into the
// shape the exporters build from. Events come back in tick order.
func LoadMatch(db *gorm.DB, matchID uint) (*v1.MatchData, error) {
	var m model.Match
	if err := db.Preload("Walls").First(&m, matchID).Error; err != nil {
		return nil, fmt.Errorf("error getting match %d: %w", matchID, err)
	}
	match, err := convert.MatchToCore(m)
	if err != nil {
		return nil, err
	}
	data := &v1.MatchData{Match: match}

	var players []model.Player
	if err := db.Where("match_id = ?", matchID).Order("id ASC").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("error getting players: %w", err)
	}
	for _, p := range players {
		data.Players = append(data.Players, convert.PlayerToCore(p))
	}

	if data.Shots, err = loadEvents(db, matchID, "shot events", convert.ShotEventToCore); err != nil {
		return nil, err
	}
	if data.Hits, err = loadEvents(db, matchID, "hit events", convert.HitEventToCore); err != nil {
		return nil, err
	}
	if data.Kills, err = loadEvents(db, matchID, "kill events", convert.KillEventToCore); err != nil {
		return nil, err
	}
	if data.PowerUps, err = loadEvents(db, matchID, "power-up events", convert.PowerUpEventToCore); err != nil {
		return nil, err
	}
	if data.Lifecycle, err = loadEvents(db, matchID, "lifecycle events", convert.LifecycleEventToCore); err != nil {
		return nil, err
	}
	if data.TickStats, err = loadEvents(db, matchID, "tick stats", convert.TickStatsToCore); err != nil {
		return nil, err
	}

	var beams []model.BeamEvent
	if err := db.Where("match_id = ?", matchID).Order("tick ASC, id ASC").Find(&beams).Error; err != nil {
		return nil, fmt.Errorf("error getting beam events: %w", err)
	}
	for _, b := range beams {
		e, err := convert.BeamEventToCore(b)
		if err != nil {
			return nil, fmt.Errorf("beam event %d: %w", b.ID, err)
		}
		data.Beams = append(data.Beams, e)
	}
	return data, nil
}

func loadEvents[M any, C any](db *gorm.DB, matchID uint, name string, conv func(M) C) ([]C, error) {
	var rows []M
	if err := db.Where("match_id = ?", matchID).Order("tick ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error getting %s: %w", name, err)
	}
	out := make([]C, 0, len(rows))
	for _, r := range rows {
		out = append(out, conv(r))
	}
	return out, nil
}
