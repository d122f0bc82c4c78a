package bot

import "math/rand"

var eightBallResponses = []string{
	"It is certain.", "It is decidedly so.", "Without a doubt.",
	"Yes – definitely.", "You may rely on it.", "As I see it, yes.",
	"Most likely.", "You bet your ass.", "lol duh", "Outlook good.", "Yes.",
	"Signs point to yes.", "Don't count on it.", "My reply is no.",
	"My sources say no.", "Outlook not so good.", "Very doubtful.",
	"Absolutely not.", "What a stupid question.", "Are you stupid?",
	"This is the dumbest question I've ever heard.",
}

func eightBallAnswer() string {
	return eightBallResponses[rand.Intn(len(eightBallResponses))]
}
