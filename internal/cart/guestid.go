package cart

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// guestIDPrefix tags locally synthesized ids so they can never be mistaken
// for server-assigned ones.
const guestIDPrefix = "guest-"

// NewGuestID synthesizes a locally unique cart-item id from the current
// time plus a random suffix.
func NewGuestID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s%d-%s", guestIDPrefix, time.Now().UnixNano(), suffix)
}

// IsGuestID reports whether the id was synthesized locally.
func IsGuestID(id string) bool {
	return strings.HasPrefix(id, guestIDPrefix)
}
