package trivia

// fallbackQuestions keep the game running when the API is unreachable or the
// cache is empty. Served in order so repeats are as far apart as possible.
var fallbackQuestions = []apiQuestion{
	{
		Category: "Geography", Difficulty: "easy",
		Question:         "What is the capital of France?",
		CorrectAnswer:    "Paris",
		IncorrectAnswers: []string{"London", "Berlin", "Madrid"},
	},
	{
		Category: "Animals", Difficulty: "easy",
		Question:         "How many legs does a spider have?",
		CorrectAnswer:    "8",
		IncorrectAnswers: []string{"6", "10", "12"},
	},
	{
		Category: "Science", Difficulty: "easy",
		Question:         "What planet is known as the Red Planet?",
		CorrectAnswer:    "Mars",
		IncorrectAnswers: []string{"Venus", "Jupiter", "Saturn"},
	},
	{
		Category: "Art", Difficulty: "easy",
		Question:         "Who painted the Mona Lisa?",
		CorrectAnswer:    "Leonardo da Vinci",
		IncorrectAnswers: []string{"Michelangelo", "Raphael", "Donatello"},
	},
	{
		Category: "Geography", Difficulty: "easy",
		Question:         "What is the largest ocean on Earth?",
		CorrectAnswer:    "Pacific Ocean",
		IncorrectAnswers: []string{"Atlantic Ocean", "Indian Ocean", "Arctic Ocean"},
	},
	{
		Category: "History", Difficulty: "easy",
		Question:         "In what year did the Titanic sink?",
		CorrectAnswer:    "1912",
		IncorrectAnswers: []string{"1905", "1920", "1898"},
	},
	{
		Category: "Science", Difficulty: "easy",
		Question:         "What element does 'O' represent on the periodic table?",
		CorrectAnswer:    "Oxygen",
		IncorrectAnswers: []string{"Gold", "Osmium", "Oganesson"},
	},
	{
		Category: "Music", Difficulty: "easy",
		Question:         "How many strings does a standard guitar have?",
		CorrectAnswer:    "6",
		IncorrectAnswers: []string{"4", "5", "8"},
	},
	{
		Category: "Geography", Difficulty: "easy",
		Question:         "What is the smallest country in the world?",
		CorrectAnswer:    "Vatican City",
		IncorrectAnswers: []string{"Monaco", "San Marino", "Liechtenstein"},
	},
	{
		Category: "Science", Difficulty: "easy",
		Question:         "Which gas do plants absorb from the atmosphere?",
		CorrectAnswer:    "Carbon Dioxide",
		IncorrectAnswers: []string{"Oxygen", "Nitrogen", "Hydrogen"},
	},
	{
		Category: "Science", Difficulty: "medium",
		Question:         "What is the hardest natural substance on Earth?",
		CorrectAnswer:    "Diamond",
		IncorrectAnswers: []string{"Gold", "Iron", "Platinum"},
	},
	{
		Category: "Literature", Difficulty: "easy",
		Question:         "Who wrote 'Romeo and Juliet'?",
		CorrectAnswer:    "William Shakespeare",
		IncorrectAnswers: []string{"Charles Dickens", "Jane Austen", "Mark Twain"},
	},
}
