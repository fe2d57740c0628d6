package models

// Team groups accounts around shared projects. Projects holds the slugs or
// ids of associated projects; MemberIDs lists member account ids.
type Team struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Picture   string   `json:"picture"`
	OwnerID   string   `json:"ownerId"`
	Hidden    bool     `json:"isHidden"`
	Projects  []string `json:"projects"`
	MemberIDs []string `json:"memberIds"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

// Clone returns a deep copy of the record.
func (t Team) Clone() Team {
	t.Projects = cloneStrings(t.Projects)
	t.MemberIDs = cloneStrings(t.MemberIDs)
	return t
}
