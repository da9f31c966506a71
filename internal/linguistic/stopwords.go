package linguistic

var englishStopwords = []string{
	"a", "about", "above", "after", "again", "against", "ain", "all", "am",
	"an", "and", "any", "are", "aren", "aren't", "as", "at", "be", "because",
	"been", "before", "being", "below", "between", "both", "but", "by", "can",
	"couldn", "couldn't", "d", "did", "didn", "didn't", "do", "does", "doesn",
	"doesn't", "doing", "don", "don't", "down", "during", "each", "few", "for",
	"from", "further", "had", "hadn", "hadn't", "has", "hasn", "hasn't", "have",
	"haven", "haven't", "having", "he", "her", "here", "hers", "herself", "him",
	"himself", "his", "how", "i", "if", "in", "into", "is", "isn", "isn't", "it",
	"it's", "its", "itself", "just", "ll", "m", "ma", "me", "mightn", "mightn't",
	"more", "most", "mustn", "mustn't", "my", "myself", "needn", "needn't", "no",
	"nor", "not", "now", "o", "of", "off", "on", "once", "only", "or", "other",
	"our", "ours", "ourselves", "out", "over", "own", "re", "s", "same", "shan",
	"shan't", "she", "she's", "should", "should've", "shouldn", "shouldn't", "so",
	"some", "such", "t", "than", "that", "that'll", "the", "their", "theirs",
	"them", "themselves", "then", "there", "these", "they", "this", "those",
	"through", "to", "too", "under", "until", "up", "ve", "very", "was", "wasn",
	"wasn't", "we", "were", "weren", "weren't", "what", "when", "where", "which",
	"while", "who", "whom", "why", "will", "with", "won", "won't", "wouldn",
	"wouldn't", "y", "you", "you'd", "you'll", "you're", "you've", "your",
	"yours", "yourself", "yourselves",
}

var russianStopwords = []string{
	"и", "в", "во", "не", "что", "он", "на", "я", "с", "со", "как", "а", "то",
	"все", "она", "так", "его", "но", "да", "ты", "к", "у", "же", "вы", "за",
	"бы", "по", "только", "ее", "мне", "было", "вот", "от", "меня", "еще", "нет",
	"о", "из", "ему", "теперь", "когда", "даже", "ну", "вдруг", "ли", "если",
	"уже", "или", "ни", "быть", "был", "него", "до", "вас", "нибудь", "опять",
	"уж", "вам", "ведь", "там", "потом", "себя", "ничего", "ей", "может", "они",
	"тут", "где", "есть", "надо", "ней", "для", "мы", "тебя", "их", "чем", "была",
	"сам", "чтоб", "без", "будто", "чего", "раз", "тоже", "себе", "под", "будет",
	"ж", "тогда", "кто", "этот", "того", "потому", "этого", "какой", "совсем",
	"ним", "здесь", "этом", "один", "почти", "мой", "тем", "чтобы", "нее",
	"сейчас", "были", "куда", "зачем", "всех", "никогда", "можно", "при",
	"наконец", "два", "об", "другой", "хоть", "после", "над", "больше", "тот",
	"через", "эти", "нас", "про", "всего", "них", "какая", "много", "разве",
	"три", "эту", "моя", "впрочем", "хорошо", "свою", "этой", "перед", "иногда",
	"лучше", "чуть", "том", "нельзя", "такой", "им", "более", "всегда",
	"конечно", "всю", "между",
}

func wordSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
