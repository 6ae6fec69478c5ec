package api

import "errors"

// Validator - interface that DTOs may implement
type Validator interface {
	Validate() error
}

func (p PositionPayload) Validate() error {
	if p.Row < 0 || p.Col < 0 {
		return errors.New("row and col must be non-negative")
	}
	return nil
}

func (r ObstacleRequest) Validate() error {
	return PositionPayload{Row: r.Row, Col: r.Col}.Validate()
}
