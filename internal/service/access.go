package service

import (
	"github.com/homereel/media-library/internal/models"
	appErrors "github.com/homereel/media-library/pkg/errors"
)

// AccessPolicy decides who may view or modify a media item.
type AccessPolicy struct {
	// GuestView lets GUEST identities see AUTHED and LINK items.
	GuestView bool
}

// CanView reports whether identity may read m. A nil identity is anonymous
// and never passes here; anonymous LINK access goes through a signed token.
func (p AccessPolicy) CanView(m *models.Media, identity *models.Identity) bool {
	if m == nil || identity == nil {
		return false
	}
	if identity.IsAdmin() || identity.Owns(m.UploadedBy) {
		return true
	}
	if m.Visibility == models.VisibilityPrivate {
		return false
	}
	if identity.Role == models.RoleGuest {
		return p.GuestView
	}
	return identity.Role == models.RoleUser
}

// CanModify reports whether identity may edit or delete m.
func (p AccessPolicy) CanModify(m *models.Media, identity *models.Identity) bool {
	if m == nil || identity == nil {
		return false
	}
	return identity.IsAdmin() || identity.Owns(m.UploadedBy)
}

// Filter narrows a listing to what identity may see.
func (p AccessPolicy) Filter(filter models.MediaFilter, identity *models.Identity) models.MediaFilter {
	filter.AllVisibility = identity.IsAdmin()
	filter.ViewerID = ""
	if identity != nil {
		filter.ViewerID = identity.UserID
		if identity.Role == models.RoleGuest && !p.GuestView {
			filter.UploadedBy = identity.UserID
		}
	}
	return filter
}

// AuthorizeView returns nil when identity may read m. Items the caller could
// not know about are reported as missing rather than forbidden.
func (p AccessPolicy) AuthorizeView(m *models.Media, identity *models.Identity) error {
	if p.CanView(m, identity) {
		return nil
	}
	if identity == nil {
		return appErrors.ErrUnauthorized
	}
	if m.Visibility == models.VisibilityPrivate {
		return appErrors.ErrMediaNotFound
	}
	return appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this media")
}

// AuthorizeModify returns nil when identity may change m.
func (p AccessPolicy) AuthorizeModify(m *models.Media, identity *models.Identity) error {
	if err := p.AuthorizeView(m, identity); err != nil {
		return err
	}
	if !p.CanModify(m, identity) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner or an administrator can change this media")
	}
	return nil
}
