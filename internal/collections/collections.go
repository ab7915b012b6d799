// Package collections names every document path the application writes.
package collections

import "github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore"

const (
	users       = "users"
	moodEvents  = "mood_events"
	following   = "following"
	followers   = "followers"
	requests    = "follow_requests"
	recentMoods = "most_recent_moods"
)

func Users() string { return users }

func User(username string) string { return docstore.Join(users, username) }

// MoodEvents is the personal journal of username.
func MoodEvents(username string) string { return docstore.Join(users, username, moodEvents) }

func MoodEvent(username, id string) string { return docstore.Join(MoodEvents(username), id) }

// Following lists who username follows.
func Following(username string) string { return docstore.Join(users, username, following) }

func FollowingEdge(username, target string) string {
	return docstore.Join(Following(username), target)
}

// Followers lists who follows username.
func Followers(username string) string { return docstore.Join(users, username, followers) }

func FollowerEdge(username, follower string) string {
	return docstore.Join(Followers(username), follower)
}

// FollowRequests lists pending requests addressed to username.
func FollowRequests(username string) string { return docstore.Join(users, username, requests) }

func FollowRequest(username, requester string) string {
	return docstore.Join(FollowRequests(username), requester)
}

// RecentMoods holds one projection document per user.
func RecentMoods() string { return recentMoods }

func RecentMood(username string) string { return docstore.Join(recentMoods, username) }
