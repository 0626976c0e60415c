package coach

import "math/rand/v2"

// Category is the commentary bucket an event maps to.
type Category string

const (
	CategoryDeath          Category = "DEATH"
	CategoryKill           Category = "KILL"
	CategoryTeammateDeath  Category = "TEAMMATE_DEATH"
	CategoryObjectiveTaken Category = "OBJECTIVE_TAKEN"
	CategoryObjectiveLost  Category = "OBJECTIVE_LOST"
	CategoryCreepGap       Category = "CS_GAP"
)

// Categories lists every commentary category, for validation and debugging.
var Categories = []Category{
	CategoryDeath,
	CategoryKill,
	CategoryTeammateDeath,
	CategoryObjectiveTaken,
	CategoryObjectiveLost,
	CategoryCreepGap,
}

// IsValid reports whether c is a recognised category.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// linePools holds the static fallback lines per language and category. These
// are spoken whenever LLM generation is disabled or fails, and they are the
// corpus the speech cache preloads at startup.
var linePools = map[string]map[Category][]string{
	"zh": {
		CategoryDeath: {
			"又倒下了？泉水给你留了个专属座位。",
			"这波操作建议录下来，当反面教材。",
			"对面应该给你发工资，太照顾他们了。",
			"灰屏时间到，好好反省一下。",
			"别急着出去送，稍微冷静两秒。",
		},
		CategoryKill: {
			"哟，居然拿了个人头，太阳打西边出来了。",
			"对面是不是掉线了？不然怎么会死在你手里。",
			"运气不错，下次可没这么容易。",
			"终于开张了，我等得花都谢了。",
		},
		CategoryTeammateDeath: {
			"你的队友又躺下了，这把真是全靠你了。",
			"又送一个，对面经济起飞了。",
			"这队友，下把记得屏蔽匹配。",
			"看来对面多打一个人也不是坏事。",
		},
		CategoryObjectiveTaken: {
			"拿下来了？难得干了件正事。",
			"推掉了，拆迁队总算开工了。",
			"这波资源到手，别浪就行。",
		},
		CategoryObjectiveLost: {
			"资源又没了，你们在打野区观光吗？",
			"塔都送了，下次直接开门让他们进来吧。",
			"大龙都丢了，还在刷兵呢？",
		},
		CategoryCreepGap: {
			"你的补刀是做慈善吗，全捐给防御塔了。",
			"小兵看你都不躲了，知道你A不死它。",
			"这个补刀数，建议回去对线教程重修。",
		},
	},
	"en": {
		CategoryDeath: {
			"Dead again? The fountain should start charging you rent.",
			"That fight was a donation, not a play.",
			"Grey screen time. Use it to reflect.",
			"The enemy team thanks you for the bounty.",
			"Maybe wait for your team next time. Just a thought.",
		},
		CategoryKill: {
			"A kill? Check if the enemy keyboard is plugged in.",
			"Finally on the board. I almost fell asleep.",
			"Nice one. Don't let it go to your head.",
			"Even a broken clock is right twice a day.",
		},
		CategoryTeammateDeath: {
			"Your teammate just fed again. Carry harder.",
			"Another one down. The enemy mid is fed enough to open a restaurant.",
			"That teammate is playing for the other side, surely.",
			"Down a body again. Classic.",
		},
		CategoryObjectiveTaken: {
			"Objective secured. Actual macro play, shocking.",
			"Took it down. The demolition crew finally showed up.",
			"Good take. Now don't throw it away.",
		},
		CategoryObjectiveLost: {
			"Objective gone. Were you all farming raptors?",
			"Another tower donated. Generous today, aren't we.",
			"They took Baron and you were... where exactly?",
		},
		CategoryCreepGap: {
			"Your creep score is a charity drive for the tower.",
			"The minions die of old age before you last-hit them.",
			"That CS per minute belongs in a tutorial game.",
		},
	},
}

// PoolLine picks a random static line for the category and language.
// Unknown languages fall back to English; an unknown category returns "".
func PoolLine(category Category, language string) string {
	pools, ok := linePools[language]
	if !ok {
		pools = linePools["en"]
	}
	lines := pools[category]
	if len(lines) == 0 {
		return ""
	}
	return lines[rand.IntN(len(lines))]
}

// PoolLines returns every static line for the language, across all
// categories. This is the preload corpus for the speech cache.
func PoolLines(language string) []string {
	pools, ok := linePools[language]
	if !ok {
		pools = linePools["en"]
	}
	var all []string
	for _, cat := range Categories {
		all = append(all, pools[cat]...)
	}
	return all
}
