package models

import "time"

type Project struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	CreatedBy string    `json:"createdBy" bson:"createdBy"`
	Users     []string  `json:"users" bson:"users"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// HasMember reports whether the given user id is in the membership list.
func (p Project) HasMember(userID string) bool {
	for _, id := range p.Users {
		if id == userID {
			return true
		}
	}
	return false
}
