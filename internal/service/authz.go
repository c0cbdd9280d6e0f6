package service

import (
	"snaplink-be/internal/entities"
	"snaplink-be/internal/models"
)

// canDelete is the single authorization decision for URL deletion.
// Admins may delete anything. Ownerless (anonymous) URLs are deletable
// by any caller, authenticated or not: anyone who finds an anonymous
// link can clean it up. Owned URLs require the matching principal.
func canDelete(url *entities.URL, principal *models.Principal) bool {
	if principal.IsAdmin() {
		return true
	}
	if url.UserID == nil {
		return true
	}
	return principal != nil && principal.ID == *url.UserID
}
