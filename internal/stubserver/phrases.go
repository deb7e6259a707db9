package stubserver

// challengePhrases is the pool the directory hands out at registration and
// login. Each account keeps the phrase assigned when it registered.
var challengePhrases = []string{
	"Błędy też się dla mnie liczą. Nie wykreślam ich ani z życia, ani z pamięci. I nigdy nie winię za nie innych.",
	"Każda porażka jest dla mnie lekcją, której nie da się kupić. Buduje mój charakter i pozwala iść dalej z podniesioną głową.",
	"Moje decyzje należą tylko do mnie. Niezależnie od wyniku, akceptuję ich wszystkie konsekwencje bez zrzucania winy na otoczenie.",
	"Szacunek zdobywa się postawą, a nie pustymi słowami. Dlatego staram się żyć tak, by nigdy nie wstydzić się własnego odbicia w lustrze.",
	"Nie oglądam się za siebie z żalem. To, co było wczoraj, ukształtowało mnie dzisiaj. Patrzę w przyszłość spokojnie i pewnie.",
	"Prawda jest dla mnie najważniejszą wartością. Nie muszę niczego udawać, bo moja tożsamość jest spójna z tym, co mówię.",
	"Mój głos jest unikalnym kluczem do mojej tożsamości. Każde wypowiedziane słowo potwierdza, że jestem osobą, za którą się podaję.",
}
