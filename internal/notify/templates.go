// internal/notify/templates.go
package notify

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/models"
)

const (
	TitleRequestSent     = "Solicitud de amistad"
	TitleRequestAccepted = "Amistad aceptada"

	bodyRequestAccepted = "¡Ahora son amigos!"
)

// RequestSent is sent to the receiver of a new friend request.
func RequestSent(receiver uuid.UUID, requesterUsername string) models.Notification {
	body := fmt.Sprintf("Has recibido una solicitud de @%s", requesterUsername)
	return models.Notification{UserID: receiver, Title: TitleRequestSent, Body: &body}
}

// RequestAccepted is sent to the original requester once the receiver accepts.
func RequestAccepted(requester uuid.UUID) models.Notification {
	body := bodyRequestAccepted
	return models.Notification{UserID: requester, Title: TitleRequestAccepted, Body: &body}
}
