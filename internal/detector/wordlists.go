package detector

// defaultWordlists holds a compact set of high-frequency function words per
// supported language, used for the word-fraction score in spec §4.B step 3(a).
// These are deliberately short, closed-class words (articles, pronouns,
// conjunctions) that appear in almost any sentence, rather than a full
// frequency dictionary.
var defaultWordlists = map[LangCode][]string{
	LangEN: {"the", "is", "are", "and", "you", "to", "of", "in", "it", "for", "this", "that", "with", "hello", "world"},
	LangES: {"el", "la", "de", "que", "y", "en", "un", "es", "no", "con", "para", "los", "las", "hola", "mundo"},
	LangFR: {"le", "la", "de", "et", "un", "est", "que", "vous", "avec", "pour", "les", "des", "bonjour", "monde"},
	LangDE: {"der", "die", "das", "und", "ist", "nicht", "mit", "ein", "sie", "den", "hallo", "welt"},
	LangIT: {"il", "la", "di", "che", "un", "è", "non", "con", "per", "gli", "ciao", "mondo"},
	LangPT: {"o", "a", "de", "que", "e", "um", "é", "não", "com", "para", "os", "olá", "mundo"},
	LangRU: {"и", "в", "не", "на", "я", "что", "он", "это", "привет", "мир"},
	LangJA: {"の", "は", "に", "を", "た", "が", "こんにちは", "世界"},
	LangKO: {"이", "는", "을", "에", "가", "안녕하세요", "세계"},
	LangZH: {"的", "是", "不", "了", "在", "你好", "世界"},
	LangAR: {"في", "من", "على", "أن", "هذا", "مرحبا", "العالم"},
	LangHI: {"है", "में", "का", "की", "को", "नमस्ते", "दुनिया"},
}

// romanizedHindiWords are common Hindi words written in Latin script
// ("Hinglish"), used to detect spec §4.B's dedicated hi-rom scoring path.
var romanizedHindiWords = []string{
	"hai", "nahi", "kaise", "muje", "mujhe", "aap", "aapki", "kya", "kyun",
	"kyon", "hum", "tum", "mera", "mujhko", "chahiye", "acha", "accha",
	"theek", "thik", "bahut", "bhai", "yaar", "kar", "karo", "karna",
	"matlab", "samajh", "nahin",
}
