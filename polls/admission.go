// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"time"

	"pollcore/apperr"
	"pollcore/auth"
	"pollcore/models"
)

// admission carries what the ballot recorder needs once the gates have
// passed: the voter identity normalized into ballot form, plus a freshly
// minted device token when the voter arrived with none.
type admission struct {
	VoterUserID       string
	DeviceToken       string
	IPHash            string
	MintedDeviceToken string
}

// admit runs the admission gates in their fixed order: expiry, password,
// embed restriction, duplicate scan, guest policy. The first failing gate
// determines the error kind, so an expired poll reports Expired even when
// the password is also wrong.
func (s *Service) admit(poll *models.Poll, req models.VoteRequest, now time.Time) (admission, error) {
	if poll.Expired(now) {
		return admission{}, apperr.Expired("this poll has expired")
	}

	if poll.Privacy == models.PrivacyPasswordProtected {
		if req.Password == "" || !auth.VerifyPassword(req.Password, s.cfg.IdentitySalt, poll.PasswordHash) {
			return admission{}, apperr.Unauthorized("invalid poll password")
		}
	}

	// Polls embedded on a creator's own page reject the creator's ballots.
	if req.EmbedContext && req.Identity.UserID != "" && req.Identity.UserID == poll.CreatorID {
		return admission{}, apperr.Forbidden("you cannot vote on your own embedded poll")
	}

	adm := admission{
		VoterUserID: req.Identity.UserID,
		DeviceToken: req.Identity.DeviceToken,
		IPHash:      auth.HashIP(req.Identity.IP, s.cfg.IdentitySalt),
	}

	for i := range poll.Ballots {
		if ballotMatches(&poll.Ballots[i], adm) {
			return admission{}, apperr.AlreadyVoted("you have already voted on this poll")
		}
	}

	if adm.VoterUserID == "" {
		if !poll.AllowGuestVoting {
			return admission{}, apperr.Unauthorized("sign in to vote on this poll")
		}
		// Minted only after the dedup scan, so a blank token can never be
		// used to slip past it.
		if adm.DeviceToken == "" {
			token, err := auth.GenerateDeviceToken()
			if err != nil {
				return admission{}, err
			}
			adm.DeviceToken = token
			adm.MintedDeviceToken = token
		}
	}

	return adm, nil
}

// ballotMatches reports whether an existing ballot belongs to the same
// voter. Any overlapping marker counts: account id, device token, or
// hashed address.
func ballotMatches(b *models.Ballot, adm admission) bool {
	if adm.VoterUserID != "" && b.VoterUserID == adm.VoterUserID {
		return true
	}
	if adm.DeviceToken != "" && b.DeviceToken == adm.DeviceToken {
		return true
	}
	if adm.IPHash != "" && b.IPHash == adm.IPHash {
		return true
	}
	return false
}
