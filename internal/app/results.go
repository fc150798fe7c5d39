package app

import (
	"math"
	"sort"
	"strconv"

	"quiz-session-service/internal/domain"
)

// questionResult derives the statistics of one question from its immutable
// submission records.
func questionResult(pos int, q domain.Question, subs map[string]domain.Submission, players []*domain.Player) domain.QuestionResult {
	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}

	correctIDs := q.CorrectAnswerIDs()
	selections := make(map[string][]string, len(correctIDs))
	playersCorrect := []string{}
	var total float64

	for playerID, sub := range subs {
		total += sub.Elapsed.Seconds()
		if isCorrect(q, sub.AnswerIDs) {
			playersCorrect = append(playersCorrect, names[playerID])
		}
		for _, id := range sub.AnswerIDs {
			if a, ok := answerByID(q, id); ok && a.Correct {
				selections[id] = append(selections[id], names[playerID])
			}
		}
	}
	sort.Strings(playersCorrect)

	correctSelections := make([]domain.AnswerSelection, 0, len(correctIDs))
	for _, id := range correctIDs {
		picked := selections[id]
		if picked == nil {
			picked = []string{}
		}
		sort.Strings(picked)
		correctSelections = append(correctSelections, domain.AnswerSelection{AnswerID: id, PlayerNames: picked})
	}

	result := domain.QuestionResult{
		QuestionID:        q.ID,
		Position:          pos,
		PlayersCorrect:    playersCorrect,
		CorrectSelections: correctSelections,
	}
	if len(players) > 0 {
		result.PercentCorrect = int(math.Round(float64(len(playersCorrect)) * 100 / float64(len(players))))
	}
	if len(subs) > 0 {
		result.AverageAnswerTime = int(math.Round(total / float64(len(subs))))
	}
	return result
}

func answerByID(q domain.Question, id string) (domain.Answer, bool) {
	for _, a := range q.Answers {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Answer{}, false
}

// rankPlayers orders players by descending cumulative score, ties broken by
// player id.
func rankPlayers(players []*domain.Player, awards []map[string]domain.QuestionAward) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(players))
	for _, p := range players {
		breakdown := make([]domain.QuestionAward, len(awards))
		for pos, byPlayer := range awards {
			breakdown[pos] = byPlayer[p.ID]
		}
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:  p.ID,
			Name:      p.Name,
			Score:     p.Score,
			Breakdown: breakdown,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	return entries
}

// ResultRows renders a finalized result as rows: a header followed by one row
// per ranked player.
func ResultRows(result domain.SessionResult) [][]string {
	header := []string{"rank", "player", "score"}
	for pos := range result.Questions {
		q := strconv.Itoa(pos + 1)
		header = append(header, "q"+q+"_score", "q"+q+"_rank")
	}

	rows := make([][]string, 0, len(result.Ranking)+1)
	rows = append(rows, header)
	for i, entry := range result.Ranking {
		row := []string{strconv.Itoa(i + 1), entry.Name, formatScore(entry.Score)}
		for pos := range result.Questions {
			var award domain.QuestionAward
			if pos < len(entry.Breakdown) {
				award = entry.Breakdown[pos]
			}
			row = append(row, formatScore(award.Score), strconv.Itoa(award.Rank))
		}
		rows = append(rows, row)
	}
	return rows
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
